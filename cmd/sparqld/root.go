package main

import (
	"github.com/spf13/cobra"

	"sparqld/internal/version"
)

var (
	// configFlag is the CLI --config flag value
	configFlag string
	// rootFlag is the directory searched for .sparqld/sparqld.{json,yaml,toml}
	rootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "sparqld",
	Short: "sparqld - SPARQL 1.1 Protocol endpoint",
	Long: `sparqld serves an RDF quad store over the SPARQL 1.1 Protocol.

Queries arrive by GET or POST on /sparql, results are content negotiated
(JSON, XML, CSV, TSV, N-Triples, Turtle, HTML) and a request without a
query returns the endpoint's service description.`,
	Version:      version.Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.SetVersionTemplate(versionTemplate())
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "",
		"Config file (default: .sparqld/sparqld.{json,yaml,toml} under --root)")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Directory holding the .sparqld config directory")
}

func versionTemplate() string {
	return version.Full() + "\n"
}
