// Package main provides the wordcrack CLI.
//
// Usage:
//
//	wordcrack [flags] <command> [args]
//
// Commands:
//
//	serve           - HTTP API for similarity lookups
//	import <csv>    - load vocabulary (and optional vectors) from CSV
//	export [file]   - write vocabulary (and optionally vectors) as CSV
//	ingest          - embed every word that has no vector yet
//	similar <word>  - print the nearest neighbours of a word
//	neighbors build - precompute neighbour lists for every word
//	version         - print the version
package main

import (
	"fmt"
	"os"

	"github.com/hubenschmidt/go-wordcrack/cmd/wordcrack/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
