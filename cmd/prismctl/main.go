// Command prismctl inspects a prism document offline: share tokens, ranking,
// balance, consequences and TEI export, without a database or server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
