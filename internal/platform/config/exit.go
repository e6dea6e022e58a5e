package config

import (
	"fmt"
	"io"
	"os"
)

// Exit codes for command failures. Container health checks treat any
// non-zero status as unhealthy; 2 additionally marks a misconfigured probe.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// Exitf reports a failure on stderr and exits with ExitFailure.
func Exitf(format string, args ...any) {
	ExitCodef(ExitFailure, format, args...)
}

// ExitUsagef reports bad flags or environment on stderr and exits with
// ExitUsage.
func ExitUsagef(format string, args ...any) {
	ExitCodef(ExitUsage, format, args...)
}

// ExitCodef writes the message to stderr and exits with code.
func ExitCodef(code int, format string, args ...any) {
	fmt.Fprintf(stderr, format+"\n", args...)
	exit(code)
}
