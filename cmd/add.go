package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
)

var (
	addStudyName  string
	addReportDesc string
	rmStudyName   string
)

var addCmd = &cobra.Command{
	Use:   "add <reports...>",
	Short: "Add VevoLab report exports to a study",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		s, err := loadStudy(addStudyName)
		if err != nil {
			return err
		}
		for _, f := range files {
			r, err := s.AddReport(f, addReportDesc)
			if err != nil {
				return err
			}
			progress("✓ Report added: %s (%d series)\n", r.Name, r.Series)
			if r.Issues > 0 {
				progress("⚠ Warning: %s has %d skipped rows\n", r.Name, r.Issues)
			}
		}
		return s.Save()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <report-id-or-name>",
	Short: "Remove a report from a study",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadStudy(rmStudyName)
		if err != nil {
			return err
		}
		if err := s.RemoveReport(args[0]); err != nil {
			return err
		}
		if err := s.Save(); err != nil {
			return err
		}
		progress("✓ Report removed: %s\n", args[0])
		return nil
	},
}

// expandInputs resolves glob patterns and literal paths into a sorted,
// de-duplicated file list.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addStudyName, "study", "p", "", "study name (default: study in the current directory)")
	addCmd.Flags().StringVar(&addReportDesc, "desc", "", "report description")

	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().StringVarP(&rmStudyName, "study", "p", "", "study name (default: study in the current directory)")
}
