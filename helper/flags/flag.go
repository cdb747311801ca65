// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package flags holds flag.Value implementations shared by commands.
package flags

import (
	"fmt"
	"strings"
)

// StringFlag implements the flag.Value interface and allows multiple
// calls to the same variable to append a list.
type StringFlag []string

func (s *StringFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *StringFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// KVFlag is a StringFlag whose values must be KEY=VALUE assignments with a
// non-empty key, such as environment variables.
type KVFlag []string

func (s *KVFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *KVFlag) Set(value string) error {
	key, _, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("%q is not of the form KEY=VALUE", value)
	}
	*s = append(*s, value)
	return nil
}
