package ruler

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is one annotated object, e.g. {"box": {"x1": 0, "y1": 10, "x2": 10, "y2": 20}, "class": "car"}
type Record map[string]any

// Dataset holds the annotations of every image, one slice of records per image
type Dataset [][]Record

// KeyNames are the field names used to read a Record
type KeyNames struct {
	Box   string `json:"box" yaml:"box" toml:"box"`
	Class string `json:"class" yaml:"class" toml:"class"`
	XMin  string `json:"xmin" yaml:"xmin" toml:"xmin"`
	YMin  string `json:"ymin" yaml:"ymin" toml:"ymin"`
	XMax  string `json:"xmax" yaml:"xmax" toml:"xmax"`
	YMax  string `json:"ymax" yaml:"ymax" toml:"ymax"`
}

// DefaultKeyNames returns box/class with x1, y1, x2, y2 coordinates
func DefaultKeyNames() KeyNames {
	return KeyNames{
		Box:   "box",
		Class: "class",
		XMin:  "x1",
		YMin:  "y1",
		XMax:  "x2",
		YMax:  "y2",
	}
}

// withDefaults fills empty key names from DefaultKeyNames
func (k KeyNames) withDefaults() KeyNames {
	d := DefaultKeyNames()
	if k.Box == "" {
		k.Box = d.Box
	}
	if k.Class == "" {
		k.Class = d.Class
	}
	if k.XMin == "" {
		k.XMin = d.XMin
	}
	if k.YMin == "" {
		k.YMin = d.YMin
	}
	if k.XMax == "" {
		k.XMax = d.XMax
	}
	if k.YMax == "" {
		k.YMax = d.YMax
	}
	return k
}

// LoadDataset reads a dataset from a .json, .yaml or .yml file
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var dataset Dataset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &dataset)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &dataset)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return dataset, nil
}

// area extracts the box of a record and returns its area and class label
func (r Record) area(keys KeyNames) (float64, string, error) {
	rawClass, ok := r[keys.Class]
	if !ok {
		return 0, "", fmt.Errorf("missing %q", keys.Class)
	}
	class, ok := rawClass.(string)
	if !ok {
		return 0, "", fmt.Errorf("%q is %T, want string", keys.Class, rawClass)
	}

	coords, err := asMap(r[keys.Box])
	if err != nil {
		return 0, "", fmt.Errorf("%q: %w", keys.Box, err)
	}

	var c [4]float64
	for i, key := range []string{keys.XMin, keys.YMin, keys.XMax, keys.YMax} {
		c[i], err = asFloat(coords[key])
		if err != nil {
			return 0, "", fmt.Errorf("%s.%s: %w", keys.Box, key, err)
		}
		if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
			return 0, "", fmt.Errorf("%s.%s: %v is not a finite number", keys.Box, key, c[i])
		}
	}

	w := c[2] - c[0]
	if w < 0 {
		w = -w
	}
	h := c[3] - c[1]
	if h < 0 {
		h = -h
	}
	return w * h, class, nil
}

func asMap(v any) (map[string]any, error) {
	switch m := v.(type) {
	case map[string]any:
		return m, nil
	case Record:
		return m, nil
	case nil:
		return nil, fmt.Errorf("missing")
	}
	return nil, fmt.Errorf("is %T, want object", v)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, fmt.Errorf("missing")
	}
	return 0, fmt.Errorf("is %T, want number", v)
}
