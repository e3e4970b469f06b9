package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// runCLI is a helper to execute the root command with args.
func runCLI(t *testing.T, args ...string) {
	t.Helper()
	if err := execCmd(args...); err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
}

func execCmd(args ...string) error {
	// Reset bound variables; cobra keeps flag values across invocations
	runStudy, runSettings, runOutput = "", "", ""
	runFlatCSV, runNoSummary, runWarnings = false, false, false
	stStudy, stOutput, stClear = "", "", false
	addStudyName, addReportDesc = "", ""
	scanTemplate, scanSubject = "", ""
	listStudies, listReports, listStudyName = false, false, ""
	quiet = true
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

const itReport = `Series Name,"M1 day 0"
Animal ID,M1
Series Date,2021-03-04

Calculation
Mass,mg,PLAX,10

Series Name,"M2 day 0"
Animal ID,M2
Series Date,2021-03-04

Calculation
Mass,mg,PLAX,12

Series Name,"M3 day 0"
Animal ID,M3
Series Date,2021-03-04

Calculation
Mass,mg,PLAX,20

Series Name,"M4 day 0"
Animal ID,M4
Series Date,2021-03-04

Calculation
Mass,mg,PLAX,23
`

const itSettings = `subjects:
  - {Animal ID: M1, group: A, DOB: "2021-01-01"}
  - {Animal ID: M2, group: A, DOB: "2021-01-01"}
  - {Animal ID: M3, group: B, DOB: "2021-01-01"}
  - {Animal ID: M4, group: B, DOB: "2021-01-01"}
timepoints:
  - {date: "2021-03-04", timepoint: day 0}
factors: [group]
derived:
  - {calculation: Age(days), include: 1}
  - {calculation: KOMP_STYLE, include: 0}
columns:
  - {source: Mass, output: Mass}
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCLI_Init_Add_Settings_Run(t *testing.T) {
	home := withHome(t)
	reportPath := filepath.Join(home, "report.csv")
	settingsPath := filepath.Join(home, "settings.yaml")
	writeFile(t, reportPath, itReport)
	writeFile(t, settingsPath, itSettings)

	runCLI(t, "init", "itest", "-d", "integration test")
	runCLI(t, "add", "-p", "itest", reportPath, "--desc", "baseline")
	runCLI(t, "settings", "-p", "itest", settingsPath)
	runCLI(t, "list", "--reports", "-p", "itest")
	runCLI(t, "run", "-p", "itest")

	dir, err := resolveStudyDirByName("itest")
	if err != nil {
		t.Fatalf("resolve study: %v", err)
	}
	out := filepath.Join(dir, "itest.xlsx")
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("missing workbook: %v", err)
	}
	summary, err := os.ReadFile(filepath.Join(dir, "itest.run.yaml"))
	if err != nil {
		t.Fatalf("missing run summary: %v", err)
	}
	if !strings.Contains(string(summary), "settings: "+settingsPath) {
		t.Fatalf("run did not use the study settings:\n%s", summary)
	}
	if _, err := os.Stat(out + ".csv"); !os.IsNotExist(err) {
		t.Fatalf("flat export written although KOMP_STYLE is off")
	}

	// init refuses to overwrite
	if err := execCmd("init", "itest"); err == nil {
		t.Fatalf("expected error re-initializing study")
	}
}

func TestCLI_ScanTemplateThenRun(t *testing.T) {
	home := withHome(t)
	reportPath := filepath.Join(home, "report.csv")
	writeFile(t, reportPath, itReport)
	tmpl := filepath.Join(home, "settings.xlsx")

	runCLI(t, "scan", reportPath, "--template", tmpl)
	if _, err := os.Stat(tmpl); err != nil {
		t.Fatalf("missing template: %v", err)
	}

	out := filepath.Join(home, "out.xlsx")
	runCLI(t, "run", filepath.Join(home, "*.csv"), "--settings", tmpl, "-o", out, "--flat-csv", "--no-summary")
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("missing workbook: %v", err)
	}
	if _, err := os.Stat(out + ".csv"); err != nil {
		t.Fatalf("missing flat export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "out.run.yaml")); !os.IsNotExist(err) {
		t.Fatalf("run summary written despite --no-summary")
	}
}

func TestCLI_RunFailsWhenWorkbookCannotBeWritten(t *testing.T) {
	home := withHome(t)
	reportPath := filepath.Join(home, "report.csv")
	writeFile(t, reportPath, itReport)
	out := filepath.Join(home, "missing", "out.xlsx")
	if err := execCmd("run", reportPath, "-o", out); err == nil {
		t.Fatalf("expected export error")
	}
	if err := execCmd("run", filepath.Join(home, "none-*.csv"), "-o", out); err == nil {
		t.Fatalf("expected error for unmatched inputs")
	}
}
