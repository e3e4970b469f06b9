package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/echoloom-cli/internal/parser"
	"github.com/KaramelBytes/echoloom-cli/internal/settings"
	"github.com/KaramelBytes/echoloom-cli/internal/utils"
)

const studyFileName = utils.StudyFile

// Study is an echoloom study workspace persisted on disk: the report
// exports of one experiment plus its settings source and output path.
type Study struct {
	Name         string                 `json:"name"`
	Description  string                 `json:"description"`
	Reports      map[string]*ReportFile `json:"reports"`
	SettingsPath string                 `json:"settings_path,omitempty"`
	OutputPath   string                 `json:"output_path,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`

	// Not serialized: on-disk location of the study.json
	rootDir string `json:"-"`
}

// NewStudy constructs an in-memory study. Call Save() to persist.
func NewStudy(name, description, rootDir string) *Study {
	return &Study{
		Name:        name,
		Description: description,
		Reports:     make(map[string]*ReportFile),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		rootDir:     rootDir,
	}
}

// LoadStudy loads a study.json from the provided directory.
func LoadStudy(dir string) (*Study, error) {
	path := filepath.Join(dir, studyFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("study not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read study: %w", err)
	}
	var s Study
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse study: %w", err)
	}
	if s.Reports == nil {
		s.Reports = make(map[string]*ReportFile)
	}
	s.rootDir = dir
	return &s, nil
}

// RootDir returns the on-disk study directory path.
func (s *Study) RootDir() string { return s.rootDir }

// Save writes study.json using atomic write.
func (s *Study) Save() error {
	if s.rootDir == "" {
		return errors.New("study root directory not set")
	}
	if err := utils.EnsureDir(s.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	s.UpdatedAt = time.Now()
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(s.rootDir, studyFileName), data)
}

// AddReport parses a report export to validate it and registers it with the
// study. A file already registered under the same path is returned as is.
func (s *Study) AddReport(path, description string) (*ReportFile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	for _, r := range s.Reports {
		if r.Path == abs {
			return r, nil
		}
	}
	rep, err := parser.ParseFile(abs, parser.Options{})
	if err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if len(rep.Series) == 0 {
		return nil, fmt.Errorf("parse report: %s contains no series", filepath.Base(abs))
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat report: %w", err)
	}
	r := &ReportFile{
		ID:          uuid.NewString(),
		Path:        abs,
		Name:        filepath.Base(abs),
		Description: description,
		Series:      len(rep.Series),
		Issues:      len(rep.Issues),
		AddedAt:     info.ModTime(),
	}
	if s.Reports == nil {
		s.Reports = make(map[string]*ReportFile)
	}
	s.Reports[r.ID] = r
	s.UpdatedAt = time.Now()
	return r, nil
}

// RemoveReport unregisters a report by ID or file name.
func (s *Study) RemoveReport(ref string) error {
	for id, r := range s.Reports {
		if id == ref || r.Name == ref {
			delete(s.Reports, id)
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("report %q not in study", ref)
}

// ReportList returns the registered reports ordered by name, then path.
func (s *Study) ReportList() []*ReportFile {
	out := make([]*ReportFile, 0, len(s.Reports))
	for _, r := range s.Reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out
}

// ReportPaths lists report paths in ReportList order.
func (s *Study) ReportPaths() []string {
	var paths []string
	for _, r := range s.ReportList() {
		paths = append(paths, r.Path)
	}
	return paths
}

// SetSettings loads the settings source to validate it and records its
// path. The loaded settings are returned so callers can report missing
// tables.
func (s *Study) SetSettings(path string) (*settings.Settings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	st, err := settings.Load(abs)
	if err != nil {
		return nil, err
	}
	s.SettingsPath = abs
	s.UpdatedAt = time.Now()
	return st, nil
}

// Output returns the workbook path for a run: OutputPath when set,
// otherwise <study>.xlsx inside the study directory.
func (s *Study) Output() string {
	if s.OutputPath != "" {
		return s.OutputPath
	}
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(s.Name))
	if name == "" {
		name = "study"
	}
	return filepath.Join(s.rootDir, name+".xlsx")
}
