package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/ground/internal/app"
)

var insightStream bool

var insightCmd = &cobra.Command{
	Use:   "insight",
	Short: "AI review of the active session's evidence",
}

var insightGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Ask the model what the collected evidence implies",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		chat := newChat(cfg)
		if err := preflight(cmd.Context(), chat, cfg); err != nil {
			return err
		}
		gen := app.NewGenerator(store, chat, logger)
		var onDelta func(string)
		if insightStream {
			onDelta = func(d string) { fmt.Print(d) }
		}
		insights, suggestions, err := gen.GenerateInsights(cmd.Context(), onDelta)
		if insightStream {
			fmt.Println()
		}
		if err != nil {
			return err
		}
		fmt.Printf("%sgenerated%s %d insights, %d suggestions\n",
			colorGreen, colorReset, len(insights), len(suggestions))
		return nil
	},
}

var insightListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active session's insights and suggestions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sess, err := store.ActiveSession()
		if err != nil {
			return err
		}
		if sess == nil {
			fmt.Println(colorGray + "no active session" + colorReset)
			return nil
		}
		fmt.Print(formatInsights(sess))
		return nil
	},
}

func init() {
	insightGenCmd.Flags().BoolVar(&insightStream, "stream", false, "print raw model output while generating")

	insightCmd.AddCommand(insightGenCmd)
	insightCmd.AddCommand(insightListCmd)
}
