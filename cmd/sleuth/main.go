// Command sleuth builds an intelligence report for one Instagram account.
//
// Usage:
//
//	sleuth jane.doe
//	sleuth jane.doe --depth 1 --json --no-report
//	sleuth jane.doe --session ~/cookies.txt --out reports/
//	sleuth jane.doe --browser-cookies --metrics-file sleuth.prom
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
