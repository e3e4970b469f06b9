package export

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/echoloom-cli/internal/utils"
)

// RunSummary describes one pipeline run.
type RunSummary struct {
	RunID     string         `yaml:"run_id"`
	StartedAt time.Time      `yaml:"started_at"`
	Duration  string         `yaml:"duration"`
	Reports   []string       `yaml:"reports"`
	Settings  string         `yaml:"settings,omitempty"`
	Output    string         `yaml:"output"`
	FlatCSV   string         `yaml:"flat_csv,omitempty"`
	Rows      map[string]int `yaml:"rows"`
	Skipped   []string       `yaml:"skipped,omitempty"`
	Warnings  []string       `yaml:"warnings,omitempty"`
}

// WriteRunSummary writes s as YAML to path.
func WriteRunSummary(path string, s RunSummary) error {
	b, err := yaml.Marshal(s)
	if err != nil {
		return &Error{Path: path, Err: fmt.Errorf("marshal yaml: %w", err)}
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}
