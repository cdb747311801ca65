// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-set/v3"
	"github.com/hashicorp/hcl"
	"github.com/hashicorp/hcl/hcl/ast"
	"github.com/hashicorp/hcl/hcl/scanner"
	"github.com/hashicorp/hcl/hcl/token"
)

// ParseConfigFile parses the configuration file at path.
func ParseConfigFile(path string) (*Config, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, err)
	}
	return c, nil
}

// ParseConfig parses a configuration from r. Only the keys present in the
// input are set, the result is meant to be merged onto DefaultConfig.
func ParseConfig(r io.Reader) (*Config, error) {
	// Copy the reader into an in-memory buffer first since HCL requires it.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}

	root, err := hcl.Parse(buf.String())
	if err != nil {
		return nil, fmt.Errorf("error parsing: %s", err)
	}
	if err := checkTruncated(buf.Bytes()); err != nil {
		return nil, err
	}
	buf.Reset()

	list, ok := root.Node.(*ast.ObjectList)
	if !ok {
		return nil, fmt.Errorf("error parsing: root should be an object")
	}

	valid := []string{
		"log_level",
		"log_json",
		"verbose",
		"dir",
		"poll_interval",
		"timeout",
		"required_version",
		"capture",
		"env",
		"command",
	}
	if err := checkHCLKeys(list, valid); err != nil {
		return nil, err
	}

	// Decode the full thing into a map[string]interface for ease
	var m map[string]interface{}
	if err := hcl.DecodeObject(&m, list); err != nil {
		return nil, err
	}
	delete(m, "capture")
	delete(m, "env")
	delete(m, "command")

	var c Config
	if err := decode(m, &c); err != nil {
		return nil, err
	}

	if o := list.Filter("capture"); len(o.Items) > 0 {
		if err := parseCapture(&c.Capture, o); err != nil {
			return nil, multierror.Prefix(err, "capture ->")
		}
	}

	if o := list.Filter("env"); len(o.Items) > 0 {
		if err := parseEnv(&c.Env, o); err != nil {
			return nil, multierror.Prefix(err, "env ->")
		}
	}

	if o := list.Filter("command"); len(o.Items) > 0 {
		if err := parseCommands(&c.Commands, o); err != nil {
			return nil, multierror.Prefix(err, "command ->")
		}
	}

	return &c, nil
}

// checkTruncated rejects input whose last item has no value. hcl.Parse drops
// such an item without error when the input ends after its '='.
func checkTruncated(src []byte) error {
	s := scanner.New(src)
	s.Error = func(token.Pos, string) {}

	var last token.Token
	for tok := s.Scan(); tok.Type != token.EOF; tok = s.Scan() {
		if tok.Type != token.COMMENT {
			last = tok
		}
	}
	if last.Type == token.ASSIGN {
		return fmt.Errorf("error parsing: At %s: expected a value after '='", last.Pos)
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// durationHook parses durations from strings. Unlike the mapstructure hook
// the error names the value that failed to parse.
func durationHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != durationType {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// decode weakly decodes m into result, parsing durations from strings.
func decode(m interface{}, result interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(durationHook),
		WeaklyTypedInput: true,
		Result:           result,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

func parseCapture(result **Capture, list *ast.ObjectList) error {
	list = list.Elem()
	if len(list.Items) > 1 {
		return fmt.Errorf("only one 'capture' block allowed")
	}

	o := list.Items[0]
	var listVal *ast.ObjectList
	if ot, ok := o.Val.(*ast.ObjectType); ok {
		listVal = ot.List
	} else {
		return fmt.Errorf("capture: should be an object")
	}

	if err := checkHCLKeys(listVal, []string{"stdout", "stderr"}); err != nil {
		return err
	}

	var m map[string]interface{}
	if err := hcl.DecodeObject(&m, o.Val); err != nil {
		return err
	}

	var capture Capture
	if err := decode(m, &capture); err != nil {
		return err
	}
	*result = &capture
	return nil
}

// parseEnv merges every env block of list into result. Values of any scalar
// type are kept as strings.
func parseEnv(result *map[string]string, list *ast.ObjectList) error {
	if *result == nil {
		*result = make(map[string]string)
	}

	for _, o := range list.Elem().Items {
		if _, ok := o.Val.(*ast.ObjectType); !ok {
			return fmt.Errorf("env: should be an object")
		}

		var m map[string]interface{}
		if err := hcl.DecodeObject(&m, o.Val); err != nil {
			return err
		}
		if err := mapstructure.WeakDecode(m, result); err != nil {
			return err
		}
	}
	return nil
}

func parseCommands(result *map[string]*Command, list *ast.ObjectList) error {
	named := list.Children()
	if len(named.Items) != len(list.Items) {
		return fmt.Errorf("'command' block missing name")
	}

	if *result == nil {
		*result = make(map[string]*Command, len(named.Items))
	}

	for _, item := range named.Items {
		name := item.Keys[0].Token.Value().(string)
		if _, ok := (*result)[name]; ok {
			return fmt.Errorf("command '%s' defined more than once", name)
		}

		var listVal *ast.ObjectList
		if ot, ok := item.Val.(*ast.ObjectType); ok {
			listVal = ot.List
		} else {
			return fmt.Errorf("command '%s': should be an object", name)
		}

		valid := []string{
			"path",
			"args",
			"dir",
			"env",
		}
		if err := checkHCLKeys(listVal, valid); err != nil {
			return multierror.Prefix(err, fmt.Sprintf("'%s' ->", name))
		}

		var m map[string]interface{}
		if err := hcl.DecodeObject(&m, item.Val); err != nil {
			return err
		}
		delete(m, "env")

		cmd := &Command{Name: name}
		if err := decode(m, cmd); err != nil {
			return multierror.Prefix(err, fmt.Sprintf("'%s' ->", name))
		}

		if o := listVal.Filter("env"); len(o.Items) > 0 {
			if err := parseEnv(&cmd.Env, o); err != nil {
				return multierror.Prefix(err, fmt.Sprintf("'%s', env ->", name))
			}
		}

		(*result)[name] = cmd
	}
	return nil
}

// checkHCLKeys returns an error listing every key of node that is not in
// valid.
func checkHCLKeys(node ast.Node, valid []string) error {
	var list *ast.ObjectList
	switch n := node.(type) {
	case *ast.ObjectList:
		list = n
	case *ast.ObjectType:
		list = n.List
	default:
		return fmt.Errorf("cannot check HCL keys of type %T", n)
	}

	validKeys := set.From(valid)

	var result error
	for _, item := range list.Items {
		key := item.Keys[0].Token.Value().(string)
		if !validKeys.Contains(key) {
			result = multierror.Append(result, fmt.Errorf(
				"invalid key: %s", key))
		}
	}

	return result
}
