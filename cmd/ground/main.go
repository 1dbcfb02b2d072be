// ground tracks thinking sessions for development work: outline the
// plan, collect evidence, let a local model challenge it, and export
// the result once every challenge has an answer.
package main

import (
	"os"

	"github.com/corey/ground/cmd/ground/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
