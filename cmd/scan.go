package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/echoloom-cli/internal/parser"
	"github.com/KaramelBytes/echoloom-cli/internal/settings"
	"github.com/spf13/cobra"
)

var (
	scanTemplate string
	scanSubject  string
)

var scanCmd = &cobra.Command{
	Use:   "scan <reports...>",
	Short: "List the metadata and outcome columns found in report exports",
	Long: `Parses every report and lists the union of metadata keys and outcome keys.
With --template, writes a starter settings workbook whose column-name sheet
maps every outcome key to itself.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		var reports []*parser.Report
		total := len(files)
		for i, path := range files {
			progress("[%d/%d] Scanning %s...\n", i+1, total, filepath.Base(path))
			r, err := parser.ParseFile(path, parser.Options{Logger: slog.Default()})
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}
		cols := parser.ScanColumns(reports)

		if scanTemplate != "" {
			if ext := strings.ToLower(filepath.Ext(scanTemplate)); ext != ".xlsx" {
				return fmt.Errorf("unsupported --template format: %s (use .xlsx)", ext)
			}
			subject := scanSubject
			if subject == "" && cfg != nil {
				subject = cfg.SubjectColumn
			}
			if err := settings.WriteTemplate(scanTemplate, cols, subject); err != nil {
				return err
			}
			progress("✓ Wrote settings template %s (%d outcome columns)\n", scanTemplate, len(cols.Outcomes))
			return nil
		}

		fmt.Println("[METADATA]")
		for _, c := range cols.Metadata {
			fmt.Printf("- %s\n", c)
		}
		fmt.Println("[OUTCOMES]")
		for _, c := range cols.Outcomes {
			fmt.Printf("- %s\n", c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanTemplate, "template", "t", "", "write a settings template workbook (.xlsx)")
	scanCmd.Flags().StringVar(&scanSubject, "subject-column", "", "subject column for the template's animal data sheet (default from config)")
}
