package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/ground/internal/adapters/logwatch"
	"github.com/corey/ground/internal/app"
	"github.com/corey/ground/internal/ports"
)

var (
	evidenceWhy   string
	evidenceTitle string
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Attach raw evidence to the active session",
}

var evidenceAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Attach a file reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.AddFileEvidence(args[0], evidenceWhy)
	},
}

var evidenceLinkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Attach an external link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.AddLinkEvidence(args[0], evidenceTitle, evidenceWhy)
	},
}

var evidenceLogCmd = &cobra.Command{
	Use:   "log [file]",
	Short: "Ingest test output as evidence, from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		if len(args) == 1 {
			raw, err = os.ReadFile(args[0])
		} else {
			raw, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return err
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.IngestTestLog(string(raw), evidenceWhy)
	},
}

var evidenceRmCmd = &cobra.Command{
	Use:   "rm <evidence-id>",
	Short: "Remove an evidence item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.RemoveEvidence(args[0])
	},
}

var evidenceWhyCmd = &cobra.Command{
	Use:   "why <evidence-id> <reason...>",
	Short: "Rewrite why an evidence item is included",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.UpdateEvidenceWhy(args[0], strings.Join(args[1:], " "))
	},
}

var evidenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active session's evidence",
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
		fmt.Print(formatEvidence(sess.Evidence))
		return nil
	},
}

var evidencePackCmd = &cobra.Command{
	Use:   "pack [file]",
	Short: "Build a one-shot evidence pack from the given file",
	Long: "Collects the file reference into an evidence pack, skipping anything\n" +
		"already attached to the session.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		in := app.PackInput{}
		if len(args) == 1 {
			in.ActiveFile = args[0]
		}
		n, err := store.BuildEvidencePack(in)
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Println(colorGray + "no new raw evidence for this pack" + colorReset)
			return nil
		}
		fmt.Printf("%spacked%s %d new item(s)\n", colorGreen, colorReset, n)
		return nil
	},
}

var evidenceWatchCmd = &cobra.Command{
	Use:   "watch <log-file>",
	Short: "Follow a test-log file and ingest it on every change",
	Long: "Watches the file until interrupted. Each time the test runner\n" +
		"rewrites it, the content lands as fresh testLog evidence.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		w, err := logwatch.NewWatcher(logger)
		if err != nil {
			return err
		}
		defer w.Stop()

		err = w.Watch(args[0], func(content string) {
			if err := store.IngestTestLog(content, "Captured automatically from watched test log."); err != nil {
				fmt.Fprintf(os.Stderr, "%singest failed:%s %v\n", colorYellow, colorReset, err)
				return
			}
			fmt.Printf("%singested%s %d bytes from %s\n", colorGreen, colorReset, len(content), args[0])
		})
		if err != nil {
			return err
		}

		fmt.Printf("watching %s%s%s — ctrl-c to stop\n", colorCyan, args[0], colorReset)
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		return nil
	},
}

var evidenceDiagCmd = &cobra.Command{
	Use:   "diag <file:line:col> <severity> <message...>",
	Short: "Attach a compiler/editor diagnostic as evidence",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		uri, line, col, err := parseLocation(args[0])
		if err != nil {
			return err
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		_, err = store.AddDiagnosticsEvidence([]ports.Diagnostic{{
			URI:       uri,
			Line:      line - 1,
			Character: col - 1,
			Severity:  args[1],
			Message:   strings.Join(args[2:], " "),
		}})
		return err
	},
}

func parseLocation(s string) (uri string, line, col int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return "", 0, 0, fmt.Errorf("location must be file:line:col, got %q", s)
	}
	uri = strings.Join(parts[:len(parts)-2], ":")
	if _, err := fmt.Sscanf(parts[len(parts)-2], "%d", &line); err != nil {
		return "", 0, 0, fmt.Errorf("bad line in %q", s)
	}
	if _, err := fmt.Sscanf(parts[len(parts)-1], "%d", &col); err != nil {
		return "", 0, 0, fmt.Errorf("bad column in %q", s)
	}
	return uri, line, col, nil
}

func init() {
	evidenceAddCmd.Flags().StringVarP(&evidenceWhy, "why", "w", "", "why this evidence matters (required)")
	evidenceLinkCmd.Flags().StringVarP(&evidenceWhy, "why", "w", "", "why this evidence matters (required)")
	evidenceLinkCmd.Flags().StringVarP(&evidenceTitle, "title", "t", "", "display title (defaults to the url)")
	evidenceLogCmd.Flags().StringVarP(&evidenceWhy, "why", "w", "", "why this log matters")

	evidenceCmd.AddCommand(evidenceAddCmd)
	evidenceCmd.AddCommand(evidenceLinkCmd)
	evidenceCmd.AddCommand(evidenceLogCmd)
	evidenceCmd.AddCommand(evidenceRmCmd)
	evidenceCmd.AddCommand(evidenceWhyCmd)
	evidenceCmd.AddCommand(evidenceListCmd)
	evidenceCmd.AddCommand(evidencePackCmd)
	evidenceCmd.AddCommand(evidenceWatchCmd)
	evidenceCmd.AddCommand(evidenceDiagCmd)
}
