package settings

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/echoloom-cli/internal/dataset"
	"github.com/KaramelBytes/echoloom-cli/internal/utils"
)

// yamlFile is the on-disk YAML layout. Table rows are mappings so their key
// order becomes the column order.
type yamlFile struct {
	Subjects   yaml.Node               `yaml:"subjects"`
	Timepoints yaml.Node               `yaml:"timepoints"`
	Factors    []string                `yaml:"factors"`
	Derived    []yamlDerived           `yaml:"derived"`
	Columns    []dataset.ColumnMapping `yaml:"columns"`
}

// yamlDerived is one derived-data row. Include is written as 0/1.
type yamlDerived struct {
	Calculation string      `yaml:"calculation"`
	Include     includeFlag `yaml:"include"`
}

// includeFlag accepts 0/1, true/false and yes/no.
type includeFlag bool

func (f *includeFlag) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: include must be 0 or 1", n.Line)
	}
	*f = includeFlag(truthy(n.Value))
	return nil
}

func (f includeFlag) MarshalYAML() (any, error) {
	if f {
		return 1, nil
	}
	return 0, nil
}

// LoadYAML reads settings from a YAML document.
func LoadYAML(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	var doc yamlFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	s := &Settings{Source: path, Factors: doc.Factors, Columns: doc.Columns}
	for _, d := range doc.Derived {
		s.Derived = append(s.Derived, dataset.DerivedSetting{Calculation: d.Calculation, Include: bool(d.Include)})
	}
	if s.Subjects, err = nodeTable(&doc.Subjects); err != nil {
		return nil, fmt.Errorf("parse subjects: %w", err)
	}
	if s.Timepoints, err = nodeTable(&doc.Timepoints); err != nil {
		return nil, fmt.Errorf("parse timepoints: %w", err)
	}
	s.Subjects = normalizeDates(s.Subjects)
	s.Timepoints = normalizeDates(s.Timepoints)
	for _, check := range []struct {
		name string
		ok   bool
	}{
		{TableSubjects, s.HasSubjects()},
		{TableTimepoints, s.HasTimepoints()},
		{TableModel, s.HasModel()},
		{TableDerived, s.HasDerived()},
		{TableColumns, s.HasColumns()},
	} {
		if !check.ok {
			s.missing(check.name)
		}
	}
	return s, nil
}

// nodeTable converts a sequence of mappings into a table.
func nodeTable(n *yaml.Node) (*dataset.Table, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of rows", n.Line)
	}
	t := dataset.NewTable()
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: expected a mapping", item.Line)
		}
		row := dataset.Row{}
		var order []string
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, val := item.Content[i].Value, item.Content[i+1]
			var v any
			switch {
			case val.Kind == yaml.ScalarNode && (val.ShortTag() == "!!int" || val.ShortTag() == "!!float"):
				// Keep numeric-looking IDs such as 007 as written.
				v = val.Value
			default:
				if err := val.Decode(&v); err != nil {
					return nil, fmt.Errorf("line %d: %w", val.Line, err)
				}
				if d, ok := v.(time.Time); ok {
					v = d.UTC()
				}
			}
			row[key] = v
			order = append(order, key)
		}
		t.AppendOrdered(row, order)
	}
	return t, nil
}

// SaveYAML writes settings as a YAML document.
func SaveYAML(s *Settings, path string) error {
	out := map[string]any{}
	if s.HasSubjects() {
		out["subjects"] = tableRows(s.Subjects)
	}
	if s.HasTimepoints() {
		out["timepoints"] = tableRows(s.Timepoints)
	}
	if s.HasModel() {
		out["factors"] = s.Factors
	}
	if s.HasDerived() {
		rows := make([]yamlDerived, len(s.Derived))
		for i, d := range s.Derived {
			rows[i] = yamlDerived{Calculation: d.Calculation, Include: includeFlag(d.Include)}
		}
		out["derived"] = rows
	}
	if s.HasColumns() {
		out["columns"] = s.Columns
	}
	b, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return utils.SafeWriteFile(path, b)
}

// tableRows renders rows as ordered mapping nodes.
func tableRows(t *dataset.Table) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	names := t.ColumnNames()
	for _, r := range t.Rows() {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for _, n := range names {
			if dataset.IsMissing(r[n]) {
				continue
			}
			var val yaml.Node
			if err := val.Encode(yamlValue(r[n])); err != nil {
				continue
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: n}, &val)
		}
		seq.Content = append(seq.Content, m)
	}
	return seq
}

func yamlValue(v any) any {
	if d, ok := v.(time.Time); ok {
		return d.Format(dataset.DateLayout)
	}
	return v
}
