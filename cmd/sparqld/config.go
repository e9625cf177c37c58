package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sparqld/internal/config"
)

var configShowDiff bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage sparqld configuration",
	Long:  "View and create the configuration stored in .sparqld/sparqld.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after file and SPARQLD_* environment overrides.

Examples:
  sparqld config show          # Full configuration as JSON
  sparqld config show --diff   # Only values that differ from defaults`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration",
	Long:  "Write the default configuration to .sparqld/sparqld.json under --root",
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rootFlag, configFlag)
	if err != nil {
		return err
	}

	configMap, err := toMap(cfg)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaultMap, err := toMap(config.DefaultConfig())
		if err != nil {
			return err
		}
		configMap = computeDiff(configMap, defaultMap)
	}

	output, err := json.MarshalIndent(configMap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.DefaultConfig().Save(rootFlag); err != nil {
		return err
	}
	fmt.Println("Wrote .sparqld/sparqld.json")
	return nil
}

func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// computeDiff keeps the entries of current that differ from defaults,
// descending into nested objects.
func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			if nested := computeDiff(currentMap, defaultMap); len(nested) > 0 {
				diff[key] = nested
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
	return diff
}
