package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sparqld/internal/store"
)

var infoFormat string

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store contents",
	Long: `Open the configured store, load the configured data files and print
the graphs, their triple counts and versions, and declared prefixes.`,
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&infoFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(infoCmd)
}

// InfoResponseCLI is the response format for info
type InfoResponseCLI struct {
	StoreType string            `json:"storeType"`
	StorePath string            `json:"storePath,omitempty"`
	Quads     int64             `json:"quads"`
	Version   string            `json:"version,omitempty"`
	Graphs    []GraphSummaryCLI `json:"graphs"`
	Prefixes  []string          `json:"prefixes,omitempty"`
}

// GraphSummaryCLI describes one graph
type GraphSummaryCLI struct {
	Name    string `json:"name"`
	Triples int64  `json:"triples"`
	Version string `json:"version,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		_ = closeLog()
	}()

	st, closeStore, err := openStore(cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	ctx := cmd.Context()
	if err := loadData(ctx, st, cfg.Load, logger); err != nil {
		return err
	}

	summary, err := store.Summarize(ctx, st)
	if err != nil {
		return err
	}

	output, err := FormatResponse(convertSummary(cfg.Store.Type, cfg.Store.Path, summary), OutputFormat(infoFormat))
	if err != nil {
		return err
	}
	fmt.Println(output)
	return nil
}

func convertSummary(storeType, storePath string, s *store.Summary) *InfoResponseCLI {
	resp := &InfoResponseCLI{
		StoreType: storeType,
		StorePath: storePath,
		Quads:     s.Quads,
		Version:   formatTime(s.Version),
		Graphs:    make([]GraphSummaryCLI, 0, len(s.Graphs)),
		Prefixes:  s.Prefixes,
	}
	for _, g := range s.Graphs {
		resp.Graphs = append(resp.Graphs, GraphSummaryCLI{
			Name:    string(g.Name),
			Triples: g.Triples,
			Version: formatTime(g.Version),
		})
	}
	return resp
}
