// ledgerlog - Balance Sync Log Analysis Tool
//
// ledgerlog reads gzipped application log archives, correlates balance
// synchronisation errors with the transactions that caused them, and reports
// the affected users and losses.
package main

import (
	"os"

	"github.com/ccollicutt/ledgerlog/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
