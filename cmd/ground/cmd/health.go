package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the local Ollama endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := workspaceRoot()
		cfg, err := loadConfig(root)
		if err != nil {
			return err
		}
		chat := newChat(cfg)

		h := chat.HealthCheck(cmd.Context())
		if !h.OK {
			fmt.Printf("%s✗ %s%s unreachable\n", colorYellow, cfg.Ollama.BaseURL, colorReset)
			fmt.Printf("  %s\n", h.Reason)
			return fmt.Errorf("endpoint not healthy")
		}

		fmt.Printf("%s✓ %s%s\n", colorGreen, cfg.Ollama.BaseURL, colorReset)
		fmt.Printf("  configured model: %s%s%s\n", colorCyan, cfg.Ollama.Model, colorReset)
		if len(h.Models) == 0 {
			fmt.Printf("  %sno models installed — try: ollama pull %s%s\n", colorGray, cfg.Ollama.Model, colorReset)
			return nil
		}
		fmt.Println("  installed:")
		for _, m := range h.Models {
			marker := " "
			if m == cfg.Ollama.Model {
				marker = colorGreen + "*" + colorReset
			}
			fmt.Printf("  %s %s\n", marker, m)
		}
		return nil
	},
}
