package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/ground/internal/app"
)

var (
	outlineSymptom     string
	outlineRepro       string
	outlineDone        string
	outlineConstraints string
	outlineStrategy    string
	outlineVerify      string
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Edit the active session's outline",
}

var outlineSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Set outline fields on the active session",
	Long: "Only the flags you pass are changed. Passing an empty value clears\n" +
		"that field. With no active session, a standard session is created.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		patch := &app.OutlinePatch{}
		set := false
		bind := func(flag string, dst **string, value string) {
			if cmd.Flags().Changed(flag) {
				v := value
				*dst = &v
				set = true
			}
		}
		bind("symptom", &patch.Symptom, outlineSymptom)
		bind("repro", &patch.ReproSteps, outlineRepro)
		bind("done", &patch.DefinitionOfDone, outlineDone)
		bind("constraints", &patch.Constraints, outlineConstraints)
		bind("strategy", &patch.Strategy, outlineStrategy)
		bind("verify", &patch.VerificationPlan, outlineVerify)
		if !set {
			return fmt.Errorf("nothing to set; pass at least one outline flag")
		}

		if _, err := store.UpdateActiveSession(app.Update{Outline: patch}); err != nil {
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

var outlineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active session's outline and gate",
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
		fmt.Print(formatSession(sess))
		return nil
	},
}

func init() {
	outlineSetCmd.Flags().StringVar(&outlineSymptom, "symptom", "", "observed problem (bugfix sessions)")
	outlineSetCmd.Flags().StringVar(&outlineRepro, "repro", "", "steps to reproduce")
	outlineSetCmd.Flags().StringVar(&outlineDone, "done", "", "definition of done")
	outlineSetCmd.Flags().StringVar(&outlineConstraints, "constraints", "", "constraints on the solution")
	outlineSetCmd.Flags().StringVar(&outlineStrategy, "strategy", "", "planned approach")
	outlineSetCmd.Flags().StringVar(&outlineVerify, "verify", "", "verification plan")

	outlineCmd.AddCommand(outlineSetCmd)
	outlineCmd.AddCommand(outlineShowCmd)
}
