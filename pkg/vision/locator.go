package vision

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/menta2k/scene-narrator/pkg/types"
)

// ZoneLocator maps bounding boxes to left/middle/right and above/midst/bottom zones
type ZoneLocator struct {
	config LocatorConfig
}

// LocatorConfig holds the straddle tolerances of the locator
type LocatorConfig struct {
	// VPoint is the fraction of a box's width it must extend past the vertical
	// midline to count as left or right.
	VPoint float64 `json:"v_point" yaml:"v_point" toml:"v_point"`
	// HPoint is the same fraction of a box's height for the horizontal midline.
	HPoint         float64 `json:"h_point" yaml:"h_point" toml:"h_point"`
	HorizontalOnly bool    `json:"horizontal_only" yaml:"horizontal_only" toml:"horizontal_only"`
}

// DefaultConfig returns the default tolerances (0.3 of the box extent, horizontal only)
func DefaultConfig() LocatorConfig {
	return LocatorConfig{
		VPoint:         0.3,
		HPoint:         0.3,
		HorizontalOnly: true,
	}
}

// Validate checks that both tolerances lie in (0,1)
func (c LocatorConfig) Validate() error {
	if !(c.VPoint > 0 && c.VPoint < 1) {
		return fmt.Errorf("v_point must be between 0 and 1 (exclusive), got %g", c.VPoint)
	}
	if !(c.HPoint > 0 && c.HPoint < 1) {
		return fmt.Errorf("h_point must be between 0 and 1 (exclusive), got %g", c.HPoint)
	}
	return nil
}

// New creates a new ZoneLocator with default configuration
func New() *ZoneLocator {
	return &ZoneLocator{config: DefaultConfig()}
}

// NewWithConfig creates a new ZoneLocator with custom configuration
func NewWithConfig(config LocatorConfig) *ZoneLocator {
	return &ZoneLocator{config: config}
}

// Config returns the locator configuration
func (l *ZoneLocator) Config() LocatorConfig {
	return l.config
}

// Locate classifies every box against the scene midlines
func (l *ZoneLocator) Locate(boxes []types.BoundingBox, scene types.SceneDimensions) []types.Zone {
	return Locate(boxes, scene, l.config.VPoint, l.config.HPoint, l.config.HorizontalOnly)
}

// LocateConcurrent is Locate split into chunks evaluated on up to workers goroutines
func (l *ZoneLocator) LocateConcurrent(ctx context.Context, boxes []types.BoundingBox, scene types.SceneDimensions, workers int) ([]types.Zone, error) {
	zones := make([]types.Zone, len(boxes))
	if len(boxes) == 0 {
		return zones, nil
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (len(boxes) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(boxes); start += chunk {
		end := min(start+chunk, len(boxes))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				zones[i] = locateOne(boxes[i], scene, l.config.VPoint, l.config.HPoint, l.config.HorizontalOnly)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return zones, nil
}

// Locate returns one zone per box. Each box is classified from its own
// coordinates and the scene size only, so the result does not depend on order.
func Locate(boxes []types.BoundingBox, scene types.SceneDimensions, vPoint, hPoint float64, horizontalOnly bool) []types.Zone {
	zones := make([]types.Zone, len(boxes))
	for i, box := range boxes {
		zones[i] = locateOne(box, scene, vPoint, hPoint, horizontalOnly)
	}
	return zones
}

func locateOne(box types.BoundingBox, scene types.SceneDimensions, vPoint, hPoint float64, horizontalOnly bool) types.Zone {
	box = box.Normalize()

	zone := types.Zone{
		Horizontal: types.HorizontalZone(side(box.XMin, box.XMax, scene.Width/2, vPoint)),
		Vertical:   types.VerticalUnset,
	}
	if !horizontalOnly {
		zone.Vertical = types.VerticalZone(side(box.YMin, box.YMax, scene.Height/2, hPoint))
	}
	return zone
}

// side places the interval [lo,hi] against margin: 0 before, 1 across, 2 after.
// A straddling interval still counts as before/after when it reaches at
// least point*(hi-lo) past the margin on that side.
func side(lo, hi, margin, point float64) int {
	switch {
	case lo <= margin && hi <= margin:
		return 0
	case lo >= margin && hi >= margin:
		return 2
	}

	threshold := (hi - lo) * point
	if margin-lo >= threshold {
		return 0
	}
	if hi-margin >= threshold {
		return 2
	}
	return 1
}
