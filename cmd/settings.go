package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	stStudy  string
	stOutput string
	stClear  bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings [path]",
	Short: "Attach a settings workbook or YAML file to a study",
	Long: `Validates the settings source and records it in the study. Missing tables
are reported; the features that depend on them are skipped at run time.
--output sets the study's workbook path; --clear detaches the settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStudy(stStudy)
		if err != nil {
			return err
		}
		switch {
		case stClear:
			s.SettingsPath = ""
			progress("✓ Cleared settings for %s\n", s.Name)
		case len(args) == 1:
			st, err := s.SetSettings(args[0])
			if err != nil {
				return err
			}
			for _, m := range st.Missing {
				progress("⚠ Warning: %v\n", m)
			}
			progress("✓ Settings set for %s: %s\n", s.Name, s.SettingsPath)
		case stOutput == "":
			return fmt.Errorf("settings path is required unless --clear or --output is set")
		}
		if stOutput != "" {
			abs, err := filepath.Abs(stOutput)
			if err != nil {
				return fmt.Errorf("resolve output: %w", err)
			}
			s.OutputPath = abs
			progress("✓ Output set for %s: %s\n", s.Name, abs)
		}
		return s.Save()
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.Flags().StringVarP(&stStudy, "study", "p", "", "study name (default: study in the current directory)")
	settingsCmd.Flags().StringVarP(&stOutput, "output", "o", "", "workbook path for study runs")
	settingsCmd.Flags().BoolVar(&stClear, "clear", false, "detach the study's settings")
}
