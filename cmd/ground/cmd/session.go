package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/ground/internal/ports"
)

var (
	sessionMode  string
	sessionTitle string
	sessionFile  string
	sessionLines string
	sessionAll   bool
)

// sessionContext snapshots the editor-ish state for a new session: the
// active file comes from --file or GROUND_ACTIVE_FILE, the selection
// from --lines A:B.
func sessionContext(root string) ports.SessionContext {
	ctx := ports.SessionContext{WorkspaceFolder: root}
	ctx.ActiveFile = sessionFile
	if ctx.ActiveFile == "" {
		ctx.ActiveFile = os.Getenv("GROUND_ACTIVE_FILE")
	}
	if a, b, ok := strings.Cut(sessionLines, ":"); ok {
		start, err1 := strconv.Atoi(a)
		end, err2 := strconv.Atoi(b)
		if err1 == nil && err2 == nil && start > 0 && end >= start {
			ctx.Selection = &ports.Selection{StartLine: start - 1, EndLine: end - 1}
		}
	}
	return ctx
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Create, switch, and manage thinking sessions",
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new session and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		mode, ok := ports.ParseMode(sessionMode)
		if !ok {
			return fmt.Errorf("unknown mode %q (one of: %s)", sessionMode, modeList())
		}
		id, err := store.CreateSession(mode, sessionTitle)
		if err != nil {
			return err
		}
		sess, err := store.Session(id)
		if err != nil {
			return err
		}
		fmt.Printf("%sstarted%s %s (%s)\n", colorGreen, colorReset, sess.Title, id)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		metas, err := store.ListSessions(sessionAll)
		if err != nil {
			return err
		}
		activeID, err := store.ActiveSessionID()
		if err != nil {
			return err
		}
		fmt.Print(formatSessionList(metas, activeID))
		return nil
	},
}

var sessionSwitchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make another session active",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.SetActiveSession(args[0]); err != nil {
			return err
		}
		sess, err := store.Session(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%sactive%s %s\n", colorGreen, colorReset, sess.Title)
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active session",
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
			fmt.Println(colorGray + "no active session — run: ground session new" + colorReset)
			return nil
		}
		fmt.Print(formatSession(sess))
		return nil
	},
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename <title>",
	Short: "Rename the active session",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.ActiveSessionID()
		if err != nil {
			return err
		}
		if id == "" {
			return fmt.Errorf("no active session")
		}
		return store.RenameSession(id, strings.Join(args, " "))
	},
}

var sessionArchiveCmd = &cobra.Command{
	Use:   "archive [session-id]",
	Short: "Archive a session (the active one by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := targetSession(store, args)
		if err != nil {
			return err
		}
		return store.ArchiveSession(id)
	},
}

var sessionUnarchiveCmd = &cobra.Command{
	Use:   "unarchive <session-id>",
	Short: "Bring an archived session back",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.UnarchiveSession(args[0])
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session permanently",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.DeleteSession(args[0])
	},
}

// targetSession resolves an optional session-id argument, defaulting to
// the active session.
func targetSession(store interface{ ActiveSessionID() (string, error) }, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	id, err := store.ActiveSessionID()
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("no active session")
	}
	return id, nil
}

func modeList() string {
	names := make([]string, len(ports.Modes))
	for i, m := range ports.Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func init() {
	sessionNewCmd.Flags().StringVarP(&sessionMode, "mode", "m", "standard", "session mode: "+modeList())
	sessionNewCmd.Flags().StringVarP(&sessionTitle, "title", "t", "", "session title (auto-generated when empty)")
	sessionNewCmd.Flags().StringVarP(&sessionFile, "file", "f", "", "active file to record in the session context")
	sessionNewCmd.Flags().StringVar(&sessionLines, "lines", "", "selection line range, 1-based A:B")
	sessionListCmd.Flags().BoolVarP(&sessionAll, "all", "a", false, "include archived sessions")

	sessionCmd.AddCommand(sessionNewCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionSwitchCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRenameCmd)
	sessionCmd.AddCommand(sessionArchiveCmd)
	sessionCmd.AddCommand(sessionUnarchiveCmd)
	sessionCmd.AddCommand(sessionDeleteCmd)
}
