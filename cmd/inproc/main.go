// Command inproc is a small inspection CLI over the library's process
// introspection surface: list modules, list threads, resolve a symbol.
// Flag layout: flags before the subcommand, both short and long forms for
// the common ones, a package-level verbosity toggle from -v/--verbose.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/inproc/internal/applog"
	"github.com/xyproto/inproc/internal/config"
)

func main() {
	var verbose = flag.Bool("v", false, "verbose mode")
	var verboseLong = flag.Bool("verbose", false, "verbose mode")
	flag.Parse()

	applog.Verbose = *verbose || *verboseLong || config.Verbose()

	args := flag.Args()
	if len(args) == 0 {
		cmdHelp()
		os.Exit(0)
	}

	var err error
	switch args[0] {
	case "modules":
		err = cmdModules()
	case "threads":
		err = cmdThreads()
	case "resolve":
		if len(args) < 3 {
			err = fmt.Errorf("usage: inproc resolve <module|-> <symbol>")
			break
		}
		err = cmdResolve(args[1], args[2])
	case "help", "-h", "--help":
		cmdHelp()
	default:
		err = fmt.Errorf("unknown command %q (try: modules, threads, resolve, help)", args[0])
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "inproc:", err)
		os.Exit(1)
	}
}

func cmdHelp() {
	fmt.Println(`inproc - process introspection CLI

Usage:
  inproc modules                 list loaded modules and their ranges
  inproc threads                 list this process's threads
  inproc resolve <module|-> sym  resolve a symbol address (module "-" for default scope)

Flags:
  -v, --verbose                  verbose diagnostics on stderr`)
}
