package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/ground/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective workspace configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := workspaceRoot()
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		fmt.Printf("%sollama%s\n", colorBold, colorReset)
		fmt.Printf("  base_url:        %s\n", cfg.Ollama.BaseURL)
		fmt.Printf("  model:           %s\n", cfg.Ollama.Model)
		fmt.Printf("  timeout_seconds: %d\n", cfg.Ollama.TimeoutSeconds)
		fmt.Printf("%sstorage%s\n", colorBold, colorReset)
		fmt.Printf("  path:            %s\n", cfg.DBPath(root))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file to .ground/config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := workspaceRoot()
		if err := config.Default().Save(root); err != nil {
			return err
		}
		fmt.Printf("%swrote%s %s/%s/config.yaml\n", colorGreen, colorReset, root, config.Dir)
		return nil
	},
}

// loadConfig loads workspace config without opening the store.
func loadConfig(root string) (*config.Config, error) {
	return config.Load(root)
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
