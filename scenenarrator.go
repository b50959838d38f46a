// Package scenenarrator turns object detections into short spoken-style
// descriptions of where things are in a scene and how close they look.
//
// Basic usage:
//
//	table, err := ruler.LoadTable("ruler.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	n, err := scenenarrator.New(table)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	desc, err := n.Describe(detections, types.SceneDimensions{Width: 640, Height: 480})
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, s := range desc.Narration {
//		fmt.Println(s) // e.g. "2-car-left-near"
//	}
//
// The package wires three components:
//
//  1. Vision (pkg/vision): maps each box to left/middle/right (and optionally above/midst/bottom)
//  2. Ruler (pkg/ruler): ranks each box's area against per-class training quartiles
//  3. Narration (pkg/narration): groups detections into counted phrases
//
// Each narration string is also the file name of a pre-rendered audio clip
// produced by pkg/pregen.
package scenenarrator

import (
	"errors"
	"fmt"

	"github.com/menta2k/scene-narrator/pkg/narration"
	"github.com/menta2k/scene-narrator/pkg/ruler"
	"github.com/menta2k/scene-narrator/pkg/types"
	"github.com/menta2k/scene-narrator/pkg/vision"
)

// Version of the scene narrator library
const Version = "1.0.0"

// Narrator combines a zone locator, a fitted size table and narration labels
type Narrator struct {
	locator *vision.ZoneLocator
	table   *ruler.Table
	labels  narration.Labels
}

// Option configures a Narrator
type Option func(*Narrator)

// WithLocatorConfig replaces the default locator tolerances
func WithLocatorConfig(cfg vision.LocatorConfig) Option {
	return func(n *Narrator) { n.locator = vision.NewWithConfig(cfg) }
}

// WithLabels replaces the default narration words
func WithLabels(labels narration.Labels) Option {
	return func(n *Narrator) { n.labels = labels }
}

// New creates a Narrator over a fitted table
func New(table *ruler.Table, opts ...Option) (*Narrator, error) {
	if table == nil {
		return nil, fmt.Errorf("size table cannot be nil")
	}
	n := &Narrator{
		locator: vision.New(),
		table:   table,
		labels:  narration.DefaultLabels(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.locator.Config().Validate(); err != nil {
		return nil, fmt.Errorf("locator: %w", err)
	}
	if err := n.labels.Validate(); err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	return n, nil
}

// NewWithConfig creates a Narrator from explicit locator settings and labels
func NewWithConfig(table *ruler.Table, locator vision.LocatorConfig, labels narration.Labels) (*Narrator, error) {
	return New(table, WithLocatorConfig(locator), WithLabels(labels))
}

// Description is everything derived from one frame's detections. Zones and
// Ranks are indexed like the input; a detection that could not be ranked has
// rank -1 and is left out of Entries.
type Description struct {
	Zones     []types.Zone      `json:"zones"`
	Ranks     []int             `json:"ranks"`
	Entries   []narration.Entry `json:"entries"`
	Narration []string          `json:"narration"`
}

// Describe locates, ranks and narrates detections. Rank lookup failures are
// returned as a joined error alongside the description of the remaining
// detections.
func (n *Narrator) Describe(detections []types.Detection, scene types.SceneDimensions) (*Description, error) {
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	boxes := make([]types.BoundingBox, len(detections))
	classes := make([]int, len(detections))
	for i, d := range detections {
		boxes[i] = d.Box
		classes[i] = d.Class
	}

	cfg := n.locator.Config()
	zones := n.locator.Locate(boxes, scene)
	ranks, rankErr := n.table.Ranks(boxes, classes)
	if ranks == nil {
		return nil, rankErr
	}

	var keptClasses, keptRanks []int
	var keptZones []types.Zone
	for i, r := range ranks {
		if r < 0 {
			continue
		}
		keptClasses = append(keptClasses, classes[i])
		keptRanks = append(keptRanks, r)
		keptZones = append(keptZones, zones[i])
	}

	entries, err := narration.Aggregate(keptClasses, keptRanks, keptZones, n.table.Labels(), n.labels, cfg.HorizontalOnly)
	if err != nil {
		return nil, errors.Join(rankErr, err)
	}

	return &Description{
		Zones:     zones,
		Ranks:     ranks,
		Entries:   entries,
		Narration: narration.Strings(entries),
	}, rankErr
}

// Locator returns the zone locator in use
func (n *Narrator) Locator() *vision.ZoneLocator {
	return n.locator
}

// Table returns the size table in use
func (n *Narrator) Table() *ruler.Table {
	return n.table
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
