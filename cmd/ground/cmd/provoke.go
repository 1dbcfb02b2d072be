package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/ground/internal/app"
)

var (
	provokeMock   bool
	provokeStream bool
)

var provokeCmd = &cobra.Command{
	Use:   "provoke",
	Short: "Generate and answer provocation cards",
}

var provokeGenCmd = &cobra.Command{
	Use:   "gen",
	Short: "Ask the model to challenge the active session's plan",
	Long: "Replaces the session's provocation cards. Responses to cards that\n" +
		"disappear are dropped with them; the gate locks again until every new\n" +
		"card is answered. Use --mock for deterministic offline cards.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if provokeMock {
			gen := app.NewGenerator(store, nil, logger)
			cards, err := gen.GenerateMockProvocations()
			if err != nil {
				return err
			}
			fmt.Printf("%sgenerated%s %d mock cards\n", colorGreen, colorReset, len(cards))
			return nil
		}

		chat := newChat(cfg)
		if err := preflight(cmd.Context(), chat, cfg); err != nil {
			return err
		}
		gen := app.NewGenerator(store, chat, logger)
		var onDelta func(string)
		if provokeStream {
			onDelta = func(d string) { fmt.Print(d) }
		}
		cards, err := gen.GenerateProvocations(cmd.Context(), onDelta)
		if provokeStream {
			fmt.Println()
		}
		if err != nil {
			return err
		}
		fmt.Printf("%sgenerated%s %d cards with %s\n", colorGreen, colorReset, len(cards), cfg.Ollama.Model)
		return nil
	},
}

var provokeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active session's provocation cards",
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
		fmt.Print(formatCards(sess))
		fmt.Print(formatGate(sess.Gate))
		return nil
	},
}

var provokeRespondCmd = &cobra.Command{
	Use:   "respond <card-id> <accept|hold|reject> <rationale...>",
	Short: "Answer a provocation card",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.UpsertProvocationResponse(args[0], args[1], strings.Join(args[2:], " ")); err != nil {
			return err
		}
		sess, err := store.ActiveSession()
		if err != nil {
			return err
		}
		fmt.Print(formatGate(sess.Gate))
		return nil
	},
}

func init() {
	provokeGenCmd.Flags().BoolVar(&provokeMock, "mock", false, "use deterministic template cards, no model")
	provokeGenCmd.Flags().BoolVar(&provokeStream, "stream", false, "print raw model output while generating")

	provokeCmd.AddCommand(provokeGenCmd)
	provokeCmd.AddCommand(provokeListCmd)
	provokeCmd.AddCommand(provokeRespondCmd)
}
