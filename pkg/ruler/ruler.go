// Package ruler ranks object sizes against per-class area quantiles fitted on
// an annotated dataset.
//
// A Table is built once and never changes afterwards; it is safe for
// concurrent reads.
package ruler

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/scene-narrator/pkg/narration"
	"github.com/menta2k/scene-narrator/pkg/types"
)

// Probabilities are the quantiles that split each class into four ranks
var Probabilities = [3]float64{0.25, 0.5, 0.75}

// MaxRank is the rank of an object larger than every boundary of its class
const MaxRank = len(Probabilities)

var (
	// ErrEmptyClass is returned by Build when a class has no training objects
	ErrEmptyClass = errors.New("class has no training examples")
	// ErrUnknownClass is returned for labels or indices outside the vocabulary
	ErrUnknownClass = errors.New("unknown class")
)

// LookupError reports a rank query whose class index is not in the vocabulary
type LookupError struct {
	Index int // position of the detection in the query batch
	Class int
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("detection %d: class index %d: %v", e.Index, e.Class, ErrUnknownClass)
}

func (e *LookupError) Unwrap() error {
	return ErrUnknownClass
}

// Table holds the three area boundaries of every class
type Table struct {
	labels     []string
	boundaries map[string][3]float64
	areas      map[string][]float64
}

// Build fits a Table on dataset. Every label in classLabels needs at least
// one object, and every object must carry one of those labels. Labels must
// be usable in narration strings.
func Build(dataset Dataset, classLabels []string, keys KeyNames) (*Table, error) {
	if len(classLabels) == 0 {
		return nil, fmt.Errorf("class labels cannot be empty")
	}
	if err := narration.ValidateVocabulary(classLabels); err != nil {
		return nil, fmt.Errorf("class labels: %w", err)
	}
	keys = keys.withDefaults()

	areas := make(map[string][]float64, len(classLabels))
	for _, label := range classLabels {
		if _, dup := areas[label]; dup {
			return nil, fmt.Errorf("duplicate class label %q", label)
		}
		areas[label] = nil
	}

	for i, image := range dataset {
		for j, record := range image {
			area, class, err := record.area(keys)
			if err != nil {
				return nil, fmt.Errorf("image %d, object %d: %w", i, j, err)
			}
			if _, ok := areas[class]; !ok {
				return nil, fmt.Errorf("image %d, object %d: %w %q", i, j, ErrUnknownClass, class)
			}
			areas[class] = append(areas[class], area)
		}
	}

	t := &Table{
		labels:     append([]string(nil), classLabels...),
		boundaries: make(map[string][3]float64, len(classLabels)),
		areas:      areas,
	}
	for _, label := range classLabels {
		values := areas[label]
		if len(values) == 0 {
			return nil, fmt.Errorf("class %q: %w", label, ErrEmptyClass)
		}
		sort.Float64s(values)
		t.boundaries[label] = boundaries(values)
	}
	return t, nil
}

func boundaries(sorted []float64) [3]float64 {
	var b [3]float64
	for i, p := range Probabilities {
		b[i] = Quantile(p, sorted)
	}
	return b
}

// Quantile returns the p-quantile of sorted by linear interpolation between
// order statistics: h = (n-1)p, q = x[floor(h)] + (h-floor(h))*(x[floor(h)+1]-x[floor(h)]).
// This is numpy's default ("linear", Hyndman-Fan type 7). sorted must be
// ascending and non-empty.
func Quantile(p float64, sorted []float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i >= n-1 {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Labels returns a copy of the class vocabulary in index order
func (t *Table) Labels() []string {
	return append([]string(nil), t.labels...)
}

// Boundaries returns the 25th/50th/75th percentile areas of a class
func (t *Table) Boundaries(label string) ([3]float64, bool) {
	b, ok := t.boundaries[label]
	return b, ok
}

// RankArea returns how many boundaries of the class are <= area, in [0,3]
func (t *Table) RankArea(area float64, label string) (int, error) {
	b, ok := t.boundaries[label]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownClass, label)
	}
	return sort.Search(len(b), func(i int) bool { return b[i] > area }), nil
}

// Rank returns the size rank of one box of class index class
func (t *Table) Rank(box types.BoundingBox, class int) (int, error) {
	if class < 0 || class >= len(t.labels) {
		return 0, &LookupError{Class: class}
	}
	return t.RankArea(box.Area(), t.labels[class])
}

// Ranks ranks every (box, class) pair. A detection with an unknown class gets
// rank -1 and a *LookupError in the joined error; the others are still ranked.
func (t *Table) Ranks(boxes []types.BoundingBox, classes []int) ([]int, error) {
	if len(boxes) != len(classes) {
		return nil, fmt.Errorf("got %d boxes but %d classes", len(boxes), len(classes))
	}

	ranks := make([]int, len(boxes))
	var errs []error
	for i := range boxes {
		rank, err := t.Rank(boxes[i], classes[i])
		if err != nil {
			var le *LookupError
			if errors.As(err, &le) {
				le.Index = i
			}
			errs = append(errs, err)
			rank = -1
		}
		ranks[i] = rank
	}
	return ranks, errors.Join(errs...)
}

// ClassStats summarizes the training areas of one class
type ClassStats struct {
	Label      string
	Count      int
	Mean       float64
	StdDev     float64
	Min        float64
	Max        float64
	Boundaries [3]float64
}

// Stats returns per-class area statistics in label order. Tables loaded from
// a file carry no areas and report Count 0.
func (t *Table) Stats() []ClassStats {
	out := make([]ClassStats, 0, len(t.labels))
	for _, label := range t.labels {
		s := ClassStats{Label: label, Boundaries: t.boundaries[label]}
		if values := t.areas[label]; len(values) > 0 {
			s.Count = len(values)
			s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
			if len(values) == 1 {
				s.StdDev = 0
			}
			s.Min, s.Max = values[0], values[len(values)-1]
		}
		out = append(out, s)
	}
	return out
}
