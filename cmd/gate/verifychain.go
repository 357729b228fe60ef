package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/mindburn-labs/execgate/pkg/audit"
)

// runVerifyChainCmd implements `gate verify-chain --audit <path>`, grounded
// in core/pkg/guardian/audit.go's VerifyChain: replay the file, re-hash
// every record, and report the first break, if any.
func runVerifyChainCmd(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify-chain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.String("audit", "", "path to the audit log file (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" {
		fmt.Fprintln(stderr, "gate: --audit is required")
		return 2
	}

	brk, err := audit.VerifyFile(*path)
	if err != nil {
		fmt.Fprintf(stderr, "gate: failed to verify %s: %v\n", *path, err)
		return 1
	}
	if brk != nil {
		fmt.Fprintf(stdout, "chain break at seq %d: %s\n", brk.Seq, brk.Reason)
		return 1
	}

	fmt.Fprintln(stdout, "chain intact")
	return 0
}
