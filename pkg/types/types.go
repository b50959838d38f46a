package types

import (
	"fmt"
	"math"
)

// BoundingBox is a detector box in scene pixel coordinates
type BoundingBox struct {
	YMin float64 `json:"ymin" yaml:"ymin"`
	XMin float64 `json:"xmin" yaml:"xmin"`
	YMax float64 `json:"ymax" yaml:"ymax"`
	XMax float64 `json:"xmax" yaml:"xmax"`
}

// Box builds a BoundingBox from the detector tuple order (ymin, xmin, ymax, xmax)
func Box(ymin, xmin, ymax, xmax float64) BoundingBox {
	return BoundingBox{YMin: ymin, XMin: xmin, YMax: ymax, XMax: xmax}
}

// Normalize returns a copy with min/max swapped on any inverted axis
func (b BoundingBox) Normalize() BoundingBox {
	if b.XMin > b.XMax {
		b.XMin, b.XMax = b.XMax, b.XMin
	}
	if b.YMin > b.YMax {
		b.YMin, b.YMax = b.YMax, b.YMin
	}
	return b
}

// Width returns the horizontal extent, never negative
func (b BoundingBox) Width() float64 {
	return math.Abs(b.XMax - b.XMin)
}

// Height returns the vertical extent, never negative
func (b BoundingBox) Height() float64 {
	return math.Abs(b.YMax - b.YMin)
}

// Area returns Width * Height
func (b BoundingBox) Area() float64 {
	return b.Width() * b.Height()
}

// SceneDimensions is the pixel size of the analyzed scene
type SceneDimensions struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Validate checks that both dimensions are positive
func (s SceneDimensions) Validate() error {
	if !(s.Width > 0) || !(s.Height > 0) {
		return fmt.Errorf("scene dimensions must be positive, got %gx%g", s.Width, s.Height)
	}
	return nil
}

// Detection is a box plus an index into the class label vocabulary
type Detection struct {
	Box   BoundingBox `json:"box"`
	Class int         `json:"class"`
	Score float64     `json:"score,omitempty"`
}

// HorizontalZone is the left/middle/right placement of a box
type HorizontalZone int

const (
	Left HorizontalZone = iota
	Middle
	Right
)

// VerticalZone is the above/midst/bottom placement of a box
type VerticalZone int

const (
	Above VerticalZone = iota
	Midst
	Bottom
)

// VerticalUnset marks a zone computed in horizontal-only mode
const VerticalUnset VerticalZone = -1

// Zone is the symbolic placement of one box in the scene
type Zone struct {
	Horizontal HorizontalZone `json:"horizontal"`
	Vertical   VerticalZone   `json:"vertical"`
}

// HasVertical reports whether the vertical placement was computed
func (z Zone) HasVertical() bool {
	return z.Vertical != VerticalUnset
}

func (h HorizontalZone) String() string {
	switch h {
	case Left:
		return "left"
	case Middle:
		return "middle"
	case Right:
		return "right"
	}
	return fmt.Sprintf("HorizontalZone(%d)", int(h))
}

func (v VerticalZone) String() string {
	switch v {
	case Above:
		return "above"
	case Midst:
		return "midst"
	case Bottom:
		return "bottom"
	case VerticalUnset:
		return "unset"
	}
	return fmt.Sprintf("VerticalZone(%d)", int(v))
}

// DetectedObject is one object as reported by a vision model, box normalized to [0,1]
type DetectedObject struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Box        [4]float64 `json:"box"` // ymin, xmin, ymax, xmax
}

// DetectionResult contains the parsed reply of a vision model
type DetectionResult struct {
	Objects     []DetectedObject `json:"objects"`
	Description string           `json:"description"`
}
