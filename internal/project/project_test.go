package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/echoloom-cli/internal/project"
)

const report = "Series Name,S1\nAnimal ID,M1\n\nMeasurement\nHR1,B-Mode,bpm,x,400\nbad,row\n\nSeries Name,S2\nAnimal ID,M2\n"

func TestStudyAddReportAndPersist(t *testing.T) {
	tdir := t.TempDir()
	p1 := filepath.Join(tdir, "b.csv")
	p2 := filepath.Join(tdir, "a.csv")
	for _, p := range []string{p1, p2} {
		if err := os.WriteFile(p, []byte(report), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	st := project.NewStudy("cardiac aging", "", filepath.Join(tdir, "study"))
	r1, err := st.AddReport(p1, "first")
	if err != nil {
		t.Fatalf("add report1: %v", err)
	}
	if r1.Series != 2 {
		t.Fatalf("expected 2 series, got %d", r1.Series)
	}
	if r1.Issues != 1 {
		t.Fatalf("expected 1 issue, got %d", r1.Issues)
	}
	if _, err := st.AddReport(p2, "second"); err != nil {
		t.Fatalf("add report2: %v", err)
	}
	again, err := st.AddReport(p1, "dup")
	if err != nil || again.ID != r1.ID {
		t.Fatalf("re-adding a path should return the existing report")
	}
	if len(st.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(st.Reports))
	}
	if err := st.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := project.LoadStudy(st.RootDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	paths := loaded.ReportPaths()
	if len(paths) != 2 || filepath.Base(paths[0]) != "a.csv" {
		t.Fatalf("unexpected report order: %v", paths)
	}
	if got := loaded.Output(); got != filepath.Join(tdir, "study", "cardiac_aging.xlsx") {
		t.Fatalf("unexpected output path: %s", got)
	}
	if err := loaded.RemoveReport("a.csv"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := loaded.RemoveReport("a.csv"); err == nil {
		t.Fatalf("expected error removing twice")
	}
}

func TestStudyRejectsEmptyReport(t *testing.T) {
	tdir := t.TempDir()
	p := filepath.Join(tdir, "empty.csv")
	if err := os.WriteFile(p, []byte("Study Name,x\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := project.NewStudy("s", "", tdir)
	if _, err := st.AddReport(p, ""); err == nil {
		t.Fatalf("expected error for report without series")
	}
}

func TestStudySetSettings(t *testing.T) {
	tdir := t.TempDir()
	p := filepath.Join(tdir, "settings.yaml")
	if err := os.WriteFile(p, []byte("factors: [timepoint]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	st := project.NewStudy("s", "", tdir)
	s, err := st.SetSettings(p)
	if err != nil {
		t.Fatalf("set settings: %v", err)
	}
	if len(s.Missing) == 0 {
		t.Fatalf("expected missing tables to be reported")
	}
	if st.SettingsPath != p {
		t.Fatalf("settings path not recorded: %s", st.SettingsPath)
	}
	if _, err := st.SetSettings(filepath.Join(tdir, "settings.txt")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
