// Package main provides the graphannis CLI entry point.
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/annisql/graphannis/pkg/config"
	"github.com/annisql/graphannis/pkg/corpusstorage"
	"github.com/annisql/graphannis/pkg/exec"
	"github.com/annisql/graphannis/pkg/graphdb"
	"github.com/annisql/graphannis/pkg/query"
	"github.com/annisql/graphannis/pkg/queryjson"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphannis",
		Short: "Query engine for linguistically annotated graph corpora",
	}

	rootCmd.AddCommand(listCmd(), preloadCmd(), countCmd(), findCmd(), importCmd(), benchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStorage loads config from the environment and opens a CorpusStorage
// against its RootDir.
func openStorage() (*corpusstorage.CorpusStorage, error) {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return corpusstorage.New(cfg.RootDir, cfg.MaxCacheSize, cfg.QueryConfig())
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known corpora",
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openStorage()
			if err != nil {
				return err
			}
			for _, name := range cs.List() {
				fmt.Println(name)
			}
			return nil
		},
	}
}

func preloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preload [corpus]",
		Short: "Eagerly load every component of a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openStorage()
			if err != nil {
				return err
			}
			return cs.Preload(args[0])
		},
	}
}

func countCmd() *cobra.Command {
	var queryPath string
	cmd := &cobra.Command{
		Use:   "count [corpus]",
		Short: "Count matches of a query against a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openStorage()
			if err != nil {
				return err
			}
			d, err := loadQuery(queryPath)
			if err != nil {
				return err
			}
			count, err := cs.Count(args[0], d)
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		},
	}
	cmd.Flags().StringVarP(&queryPath, "query", "q", "", "path to a query JSON file (required)")
	cmd.MarkFlagRequired("query")
	return cmd
}

func findCmd() *cobra.Command {
	var queryPath string
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "find [corpus]",
		Short: "Find and print matches of a query against a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus := args[0]
			cs, err := openStorage()
			if err != nil {
				return err
			}
			d, err := loadQuery(queryPath)
			if err != nil {
				return err
			}
			rows, err := cs.Find(corpus, d, offset, limit)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Println(formatRow(cs, corpus, row))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&queryPath, "query", "q", "", "path to a query JSON file (required)")
	cmd.MarkFlagRequired("query")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip before the first returned row")
	cmd.Flags().IntVar(&limit, "limit", -1, "maximum rows to return; -1 means unbounded")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [corpus] [source-dir]",
		Short: "Import a corpus from an on-disk GraphDB directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := openStorage()
			if err != nil {
				return err
			}
			db := graphdb.New()
			if err := db.LoadFrom(args[1]); err != nil {
				return fmt.Errorf("loading source corpus: %w", err)
			}
			return cs.Import(args[0], db)
		},
	}
}

func benchCmd() *cobra.Command {
	var queryPath string
	var iterations int
	cmd := &cobra.Command{
		Use:   "bench [corpus]",
		Short: "Run a query repeatedly and report min/mean/max latency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus := args[0]
			cs, err := openStorage()
			if err != nil {
				return err
			}
			d, err := loadQuery(queryPath)
			if err != nil {
				return err
			}
			if err := cs.Preload(corpus); err != nil {
				return err
			}

			durations := make([]time.Duration, 0, iterations)
			var lastCount int
			for i := 0; i < iterations; i++ {
				start := time.Now()
				count, err := cs.Count(corpus, d)
				if err != nil {
					return err
				}
				durations = append(durations, time.Since(start))
				lastCount = count
			}

			sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
			var total time.Duration
			for _, d := range durations {
				total += d
			}
			mean := total / time.Duration(len(durations))

			fmt.Printf("count=%d iterations=%d min=%s mean=%s max=%s\n",
				lastCount, iterations, durations[0], mean, durations[len(durations)-1])
			return nil
		},
	}
	cmd.Flags().StringVarP(&queryPath, "query", "q", "", "path to a query JSON file (required)")
	cmd.MarkFlagRequired("query")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 10, "number of timed iterations")
	return cmd
}

func loadQuery(path string) (*query.Disjunction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	return queryjson.Parse(data)
}

func formatRow(cs *corpusstorage.CorpusStorage, corpus string, row exec.Row) string {
	parts := make([]string, len(row))
	for i, m := range row {
		text, err := cs.Resolve(corpus, m.Anno.Value)
		if err != nil || m.Anno.Value == 0 {
			parts[i] = fmt.Sprintf("node=%d", m.Node)
			continue
		}
		parts[i] = fmt.Sprintf("node=%d text=%q", m.Node, text)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
