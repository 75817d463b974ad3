// Package main is the ragcore daemon: it wires the LLM gateway, the
// retrieval layer, the memory subsystems, the tool registry, and the core
// orchestrator together, then serves the blocking and streaming query
// APIs over HTTP.
//
// Basic usage:
//
//	ragcored serve --config ragcore.yaml
//	ragcored ask "What is the minimum capital for a PT PMA?"
//	ragcored health
//
// Provider credentials come from the environment (ANTHROPIC_API_KEY,
// OPENAI_API_KEY, DATABASE_URL) or a .env file in the working directory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "ragcored",
		Short: "Agentic RAG engine for the business knowledge assistant",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "ragcore.yaml", "path to the configuration file")

	root.AddCommand(newServeCommand())
	root.AddCommand(newAskCommand())
	root.AddCommand(newIngestCommand())
	root.AddCommand(newHealthCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
