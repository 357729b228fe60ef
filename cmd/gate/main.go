// Command gate runs the policy enforcement gate: the HTTP server by
// default, plus operator subcommands for chain verification and
// pre-flight checks. Dispatcher shape grounded in core/cmd/helm/main.go.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the testable entrypoint: dispatches on args[1] the way
// core/cmd/helm/main.go's Run does, defaulting to the server when no
// subcommand (or an unrecognized flag) is given.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runServeCmd(nil, stdout, stderr)
	}

	switch args[1] {
	case "serve", "server":
		return runServeCmd(args[2:], stdout, stderr)
	case "verify-chain":
		return runVerifyChainCmd(args[2:], stdout, stderr)
	case "health":
		return runHealthCmd(args[2:], stdout, stderr)
	case "doctor":
		return runDoctorCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		if len(args[1]) > 0 && args[1][0] == '-' {
			return runServeCmd(args[1:], stdout, stderr)
		}
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "execgate — synchronous policy enforcement gate")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "usage: gate <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  serve           run the HTTP server (default)")
	fmt.Fprintln(w, "  verify-chain    replay an audit log and report the first integrity break")
	fmt.Fprintln(w, "  health          check a running gate's /healthz endpoint")
	fmt.Fprintln(w, "  doctor          validate PROFILES_ROOT and configuration")
	fmt.Fprintln(w, "  help            show this message")
}
