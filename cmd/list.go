package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/echoloom-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	listStudies   bool
	listReports   bool
	listStudyName string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List studies or the reports of a study",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listStudies == listReports { // either both true or both false
			return fmt.Errorf("specify exactly one of --studies or --reports")
		}
		if listStudies {
			return listAllStudies()
		}
		s, err := loadStudy(listStudyName)
		if err != nil {
			return err
		}
		reports := s.ReportList()
		if len(reports) == 0 {
			fmt.Println("(no reports)")
		}
		for _, r := range reports {
			fmt.Printf("- %s: %s [%d series]", r.ID, r.Name, r.Series)
			if r.Description != "" {
				fmt.Printf(" (%s)", r.Description)
			}
			fmt.Println()
		}
		if s.SettingsPath != "" {
			fmt.Printf("settings: %s\n", s.SettingsPath)
		}
		fmt.Printf("output: %s\n", s.Output())
		return nil
	},
}

func listAllStudies() error {
	root, err := defaultStudiesDir()
	if err != nil {
		return err
	}
	dirs, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	found := false
	for _, e := range dirs {
		if !e.IsDir() {
			continue
		}
		if utils.IsStudyDir(filepath.Join(root, e.Name())) {
			fmt.Printf("- %s\n", e.Name())
			found = true
		}
	}
	if !found {
		fmt.Println("(no studies)")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listStudies, "studies", false, "list studies")
	listCmd.Flags().BoolVar(&listReports, "reports", false, "list reports in a study")
	listCmd.Flags().StringVarP(&listStudyName, "study", "p", "", "study name for --reports")
}
