// Package narration groups located and ranked detections into short,
// count-prefixed phrases such as "3-car-left-above-near".
//
// The same strings name the pre-generated audio clips, so AssetName is the
// one place where the format is defined.
package narration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/menta2k/scene-narrator/pkg/types"
)

// Separator joins the fields of a narration string
const Separator = "-"

// Labels are the words used for ranks and zones. Distance is indexed by rank
// (0..3), Horizontal and Vertical by zone code (0..2).
type Labels struct {
	Distance   []string `json:"distance" yaml:"distance" toml:"distance"`
	Horizontal []string `json:"horizontal" yaml:"horizontal" toml:"horizontal"`
	Vertical   []string `json:"vertical" yaml:"vertical" toml:"vertical"`
}

// DefaultLabels returns far/near/near/close, left/middle/right, above/midst/bottom
func DefaultLabels() Labels {
	return Labels{
		Distance:   []string{"far", "near", "near", "close"},
		Horizontal: []string{"left", "middle", "right"},
		Vertical:   []string{"above", "midst", "bottom"},
	}
}

// Validate checks the table sizes against the ranker and locator output ranges
func (l Labels) Validate() error {
	if len(l.Distance) != 4 {
		return fmt.Errorf("distance labels: want 4 (one per rank), got %d", len(l.Distance))
	}
	if len(l.Horizontal) != 3 {
		return fmt.Errorf("horizontal labels: want 3 (left, middle, right), got %d", len(l.Horizontal))
	}
	if len(l.Vertical) != 3 {
		return fmt.Errorf("vertical labels: want 3 (above, midst, bottom), got %d", len(l.Vertical))
	}
	for _, group := range [][]string{l.Distance, l.Horizontal, l.Vertical} {
		if err := ValidateVocabulary(group); err != nil {
			return err
		}
	}
	return nil
}

// ValidateVocabulary rejects words that would break the narration format or
// cannot be used in a file name
func ValidateVocabulary(words []string) error {
	for _, w := range words {
		if strings.TrimSpace(w) == "" {
			return fmt.Errorf("label cannot be empty")
		}
		if strings.Contains(w, Separator) {
			return fmt.Errorf("label %q contains %q", w, Separator)
		}
		if strings.ContainsAny(w, `/\`) || w == "." || w == ".." {
			return fmt.Errorf("label %q is not a valid file name part", w)
		}
	}
	return nil
}

// RangeError reports a class, rank or zone code with no matching label
type RangeError struct {
	Index int    // position of the detection
	Field string // "class", "rank", "horizontal zone" or "vertical zone"
	Value int
	Size  int // number of labels available
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("detection %d: %s %d out of range [0,%d)", e.Index, e.Field, e.Value, e.Size)
}

// Entry is one aggregated phrase
type Entry struct {
	Count      int    `json:"count"`
	Class      string `json:"class"`
	Horizontal string `json:"horizontal"`
	Vertical   string `json:"vertical,omitempty"`
	Distance   string `json:"distance"`
}

func (e Entry) String() string {
	return AssetName(e.Count, e.Class, e.Horizontal, e.Vertical, e.Distance)
}

// AssetName renders "{count}-{class}-{horizontal}[-{vertical}]-{distance}";
// an empty vertical is omitted
func AssetName(count int, class, horizontal, vertical, distance string) string {
	parts := make([]string, 0, 5)
	parts = append(parts, strconv.Itoa(count), class, horizontal)
	if vertical != "" {
		parts = append(parts, vertical)
	}
	parts = append(parts, distance)
	return strings.Join(parts, Separator)
}

// key identifies a group. distance is the index of the first label equal to
// the rank's label, so ranks that read the same are counted together.
type key struct {
	class      int
	horizontal types.HorizontalZone
	vertical   types.VerticalZone
	distance   int
}

// Aggregate groups detections by (class, zone, distance) and returns one
// entry per group in order of first appearance. The counts add up to
// len(classes).
func Aggregate(classes, ranks []int, zones []types.Zone, classLabels []string, labels Labels, horizontalOnly bool) ([]Entry, error) {
	if len(ranks) != len(classes) || len(zones) != len(classes) {
		return nil, fmt.Errorf("got %d classes, %d ranks and %d zones", len(classes), len(ranks), len(zones))
	}
	if err := labels.Validate(); err != nil {
		return nil, err
	}

	canonical := make([]int, len(labels.Distance))
	for i, label := range labels.Distance {
		canonical[i] = i
		for j := 0; j < i; j++ {
			if labels.Distance[j] == label {
				canonical[i] = j
				break
			}
		}
	}

	index := make(map[key]int)
	var entries []Entry
	for i, class := range classes {
		if err := checkRange(i, "class", class, len(classLabels)); err != nil {
			return nil, err
		}
		if err := checkRange(i, "rank", ranks[i], len(labels.Distance)); err != nil {
			return nil, err
		}
		z := zones[i]
		if err := checkRange(i, "horizontal zone", int(z.Horizontal), len(labels.Horizontal)); err != nil {
			return nil, err
		}

		k := key{class: class, horizontal: z.Horizontal, vertical: types.VerticalUnset, distance: canonical[ranks[i]]}
		if !horizontalOnly {
			if err := checkRange(i, "vertical zone", int(z.Vertical), len(labels.Vertical)); err != nil {
				return nil, err
			}
			k.vertical = z.Vertical
		}

		if pos, ok := index[k]; ok {
			entries[pos].Count++
			continue
		}
		e := Entry{
			Count:      1,
			Class:      classLabels[class],
			Horizontal: labels.Horizontal[z.Horizontal],
			Distance:   labels.Distance[k.distance],
		}
		if !horizontalOnly {
			e.Vertical = labels.Vertical[z.Vertical]
		}
		index[k] = len(entries)
		entries = append(entries, e)
	}
	return entries, nil
}

func checkRange(i int, field string, value, size int) error {
	if value < 0 || value >= size {
		return &RangeError{Index: i, Field: field, Value: value, Size: size}
	}
	return nil
}

// Strings renders entries with Entry.String
func Strings(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.String()
	}
	return out
}

// Narrate is Aggregate followed by Strings
func Narrate(classes, ranks []int, zones []types.Zone, classLabels []string, labels Labels, horizontalOnly bool) ([]string, error) {
	entries, err := Aggregate(classes, ranks, zones, classLabels, labels, horizontalOnly)
	if err != nil {
		return nil, err
	}
	return Strings(entries), nil
}

// Total returns the sum of the entry counts
func Total(entries []Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Count
	}
	return n
}
