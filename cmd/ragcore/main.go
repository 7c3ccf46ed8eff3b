// Command ragcore is the entry point for the RAG question-answering service.
// It provides a CLI (via Cobra) for indexing a document corpus, querying it
// interactively, and running the HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/extropic-systems/ragcore/cmd/ragcore/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
