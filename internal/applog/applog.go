// Package applog is the package-wide diagnostic logger. It mirrors the
// teacher's VerboseMode global (cli.go, codegen_arm64_writer.go): a single
// bool gate around fmt.Fprintf to stderr, nothing heavier.
package applog

import (
	"fmt"
	"os"
)

// Verbose gates Printf. Flipped on by cmd/inproc's -v flag or
// config.Verbose().
var Verbose = false

// Printf writes a diagnostic line to stderr when Verbose is set.
func Printf(format string, args ...any) {
	if !Verbose {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}

// Println is Printf's line-oriented sibling.
func Println(args ...any) {
	if !Verbose {
		return
	}
	fmt.Fprintln(os.Stderr, args...)
}
