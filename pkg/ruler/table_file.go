package ruler

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/menta2k/scene-narrator/pkg/narration"
)

type tableFile struct {
	Version string       `yaml:"version"`
	Classes []classEntry `yaml:"classes"`
}

type classEntry struct {
	Label      string    `yaml:"label"`
	Count      int       `yaml:"count,omitempty"`
	Boundaries []float64 `yaml:"boundaries,flow"`
}

const tableVersion = "1"

// Save writes the fitted boundaries to a YAML file
func (t *Table) Save(path string) error {
	f := tableFile{Version: tableVersion}
	for _, label := range t.labels {
		b := t.boundaries[label]
		f.Classes = append(f.Classes, classEntry{
			Label:      label,
			Count:      len(t.areas[label]),
			Boundaries: b[:],
		})
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write table file: %w", err)
	}
	return nil
}

// LoadTable reads a table written by Save. Labels keep the file order, which
// defines the class indices.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file: %w", err)
	}

	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse table file: %w", err)
	}
	if f.Version != tableVersion {
		return nil, fmt.Errorf("unsupported table version %q", f.Version)
	}
	if len(f.Classes) == 0 {
		return nil, fmt.Errorf("table file %s has no classes", path)
	}

	t := &Table{
		boundaries: make(map[string][3]float64, len(f.Classes)),
		areas:      map[string][]float64{},
	}
	for _, c := range f.Classes {
		if err := narration.ValidateVocabulary([]string{c.Label}); err != nil {
			return nil, fmt.Errorf("class labels: %w", err)
		}
		if _, dup := t.boundaries[c.Label]; dup {
			return nil, fmt.Errorf("duplicate class label %q", c.Label)
		}
		if len(c.Boundaries) != len(Probabilities) {
			return nil, fmt.Errorf("class %q: want %d boundaries, got %d", c.Label, len(Probabilities), len(c.Boundaries))
		}
		var b [3]float64
		copy(b[:], c.Boundaries)
		for _, v := range b {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("class %q: boundaries %v are not finite", c.Label, b)
			}
		}
		if b[0] > b[1] || b[1] > b[2] {
			return nil, fmt.Errorf("class %q: boundaries %v are not non-decreasing", c.Label, b)
		}
		t.labels = append(t.labels, c.Label)
		t.boundaries[c.Label] = b
	}
	return t, nil
}
