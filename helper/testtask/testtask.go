// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package testtask implements a portable set of commands useful as stand-ins
// for child processes in tests.
//
// A test binary calls Run from TestMain and spawns itself with the
// environment returned by Env; the arguments are then interpreted as a
// sequence of commands instead of running the tests.
package testtask

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const envKey = "TEST_TASK"

// Path returns the path to the currently running executable.
func Path() string {
	path, err := os.Executable()
	if err != nil {
		panic(err)
	}
	return path
}

// Env returns the environment assignments that make Run execute a testtask
// script in a child spawned from the current executable.
func Env() []string {
	return []string{envKey + "=execute"}
}

// SetCmdEnv configures the environment of cmd so that Run executes a testtask
// script when called from within cmd.
func SetCmdEnv(cmd *exec.Cmd) {
	cmd.Env = append(os.Environ(), Env()...)
}

// Run interprets os.Args as a testtask script if the current program was
// launched with an environment configured by Env or SetCmdEnv. It returns
// false if the environment was not set by this package.
func Run() bool {
	switch tm := os.Getenv(envKey); tm {
	case "":
		return false
	case "execute":
		execute()
		return true
	default:
		fmt.Fprintf(os.Stderr, "unexpected value for TEST_TASK, \"%s\"\n", tm)
		os.Exit(1)
		return true
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func execute() {
	if len(os.Args) < 2 {
		fail("no command provided")
	}

	args := os.Args[1:]

	// popArg removes the first argument from args and returns it.
	popArg := func(cmd string) string {
		if len(args) < 1 {
			fail("expected arg for %s", cmd)
		}
		s := args[0]
		args = args[1:]
		return s
	}

	// execute a sequence of operations from args
	for len(args) > 0 {
		switch cmd := popArg("script"); cmd {

		case "sleep":
			// sleep <dur>: sleep for the duration given by the argument
			dur, err := time.ParseDuration(popArg(cmd))
			if err != nil {
				fail("could not parse sleep time: %v", err)
			}
			time.Sleep(dur)

		case "echo":
			// echo <msg>: write msg followed by a newline to stdout
			fmt.Println(popArg(cmd))

		case "print":
			// print <msg>: write msg to stdout without a newline
			fmt.Print(popArg(cmd))

		case "stderr":
			// stderr <msg>: write msg followed by a newline to stderr
			fmt.Fprintln(os.Stderr, popArg(cmd))

		case "repeat":
			// repeat <n> <msg>: write n lines of msg to stdout
			n, err := strconv.Atoi(popArg(cmd))
			if err != nil {
				fail("could not parse count: %v", err)
			}
			msg := popArg(cmd)
			w := bufio.NewWriter(os.Stdout)
			for i := 0; i < n; i++ {
				fmt.Fprintln(w, msg)
			}
			w.Flush()

		case "cat":
			// cat: copy stdin to stdout until end of input
			if _, err := io.Copy(os.Stdout, os.Stdin); err != nil {
				fail("cat failed: %v", err)
			}

		case "readline":
			// readline: copy a single line from stdin to stdout
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && err != io.EOF {
				fail("readline failed: %v", err)
			}
			fmt.Print(line)

		case "pwd":
			// pwd: write the working directory to stdout
			wd, err := os.Getwd()
			if err != nil {
				fail("getwd failed: %v", err)
			}
			fmt.Println(wd)

		case "env":
			// env <key>: write the value of an environment variable to stdout
			fmt.Println(os.Getenv(popArg(cmd)))

		case "args":
			// args: write every remaining argument on its own line and stop
			for _, arg := range args {
				fmt.Println(arg)
			}
			return

		case "pgid":
			// pgid: write the process group id to stdout
			fmt.Println(processGroup())

		case "fd":
			// fd <path> <msg>: write msg to the file at path, usually an
			// inherited descriptor under /dev/fd
			path := popArg(cmd)
			msg := popArg(cmd)
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
			if err != nil {
				fail("could not open %s: %v", path, err)
			}
			if _, err := f.WriteString(msg); err != nil {
				fail("could not write %s: %v", path, err)
			}
			f.Close()

		case "exit":
			// exit <code>: exit immediately with the given code
			code, err := strconv.Atoi(popArg(cmd))
			if err != nil {
				fail("could not parse exit code: %v", err)
			}
			os.Exit(code)

		case "fork/exec", "daemon":
			// fork/exec <pid_file> <args> starts the remaining args as a
			// testtask script in a new child sharing our process group and
			// waits for it; daemon does the same but exits right away
			if len(args) < 2 {
				fail("expect pid file and remaining args to fork exec")
			}
			pidFile := popArg(cmd)
			child := startChild(pidFile, args)

			if cmd == "fork/exec" {
				if err := child.Wait(); err != nil {
					fail("wait failed: %v", err)
				}
			}
			return

		default:
			fail("unknown command: %s", strings.TrimSpace(cmd))
		}
	}
}

// startChild starts a testtask script and publishes its pid in pidFile.
func startChild(pidFile string, script []string) *exec.Cmd {
	child := exec.Command(Path(), script...)
	SetCmdEnv(child)
	if err := child.Start(); err != nil {
		fail("failed to fork/exec: %v", err)
	}

	tmp := pidFile + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(child.Process.Pid)), 0o644); err != nil {
		fail("failed to write pid file: %v", err)
	}
	if err := os.Rename(tmp, pidFile); err != nil {
		fail("failed to write pid file: %v", err)
	}
	return child
}
