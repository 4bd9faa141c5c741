// Package main implements the tradememory CLI: reflection reports, pattern
// discovery and adjustment review over a trade journal.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath    string
	useMemory     bool
	postgresDSN   string
	clickhouseDSN string
	outputDir     string
	loadDemo      bool
	jsonOutput    bool

	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tradememory",
	Short: "Reflection and adjustment engine for a trade journal",
	Long: `tradememory reads a journal of agent trades, writes daily, weekly and
monthly reflection reports, discovers segments with a real edge or a real
weakness, and proposes strategy adjustments for human review.

Storage defaults to memory. Set POSTGRES_DSN (and optionally CLICKHOUSE_DSN
for discovered patterns) to persist between runs.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "YAML config file")
	flags.BoolVar(&useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL")
	flags.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL connection string (overrides POSTGRES_DSN)")
	flags.StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse connection string for patterns (overrides CLICKHOUSE_DSN)")
	flags.StringVar(&outputDir, "output-dir", "", "Directory for report files (overrides config)")
	flags.BoolVar(&loadDemo, "demo", false, "Load the demo journal for last week before running")
	flags.BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(reflectCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(adjustmentsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
}
