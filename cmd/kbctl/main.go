// Command kbctl manages the knowledge base directly against the configured
// chunk store and embedding provider.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}
