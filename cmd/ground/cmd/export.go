package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the active session as Markdown",
	Long: "Refuses until the gate clears: the outline must be complete and\n" +
		"every provocation card answered with a rationale.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		md, err := store.ExportMarkdown()
		if err != nil {
			return err
		}
		if exportOut == "" {
			fmt.Print(md)
			return nil
		}
		if err := os.WriteFile(exportOut, []byte(md), 0o644); err != nil {
			return err
		}
		fmt.Printf("%sexported%s %s\n", colorGreen, colorReset, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "write to file instead of stdout")
}
