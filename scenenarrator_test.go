package scenenarrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/scene-narrator/pkg/narration"
	"github.com/menta2k/scene-narrator/pkg/ruler"
	"github.com/menta2k/scene-narrator/pkg/types"
	"github.com/menta2k/scene-narrator/pkg/vision"
)

func record(class string, x1, y1, x2, y2 float64) ruler.Record {
	return ruler.Record{
		"class": class,
		"box":   map[string]any{"x1": x1, "y1": y1, "x2": x2, "y2": y2},
	}
}

// testTable fits bike areas 10..40 and car areas 100, 400
func testTable(t *testing.T) *ruler.Table {
	t.Helper()
	ds := ruler.Dataset{
		{record("bike", 0, 0, 10, 1), record("car", 0, 0, 10, 10)},
		{record("bike", 0, 0, 2, 10), record("bike", 0, 0, 5, 6)},
		{record("bike", 10, 10, 18, 15), record("car", 0, 0, 20, 20)},
	}
	table, err := ruler.Build(ds, []string{"bike", "car"}, ruler.DefaultKeyNames())
	require.NoError(t, err)
	return table
}

func TestNew(t *testing.T) {
	n, err := New(testTable(t))
	require.NoError(t, err)
	assert.Equal(t, vision.DefaultConfig(), n.Locator().Config())
	assert.NotNil(t, n.Table())

	_, err = New(nil)
	assert.Error(t, err)

	_, err = New(testTable(t), WithLocatorConfig(vision.LocatorConfig{VPoint: 0, HPoint: 0.3}))
	assert.Error(t, err)

	_, err = New(testTable(t), WithLabels(narration.Labels{}))
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	n, err := New(testTable(t))
	require.NoError(t, err)

	detections := []types.Detection{
		{Box: types.Box(0, 0, 5, 5), Class: 0},
		{Box: types.Box(0, 60, 20, 80), Class: 1},
		{Box: types.Box(0, 10, 5, 15), Class: 0},
	}
	desc, err := n.Describe(detections, types.SceneDimensions{Width: 100, Height: 100})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 3, 2}, desc.Ranks)
	assert.Equal(t, types.Left, desc.Zones[0].Horizontal)
	assert.Equal(t, types.Right, desc.Zones[1].Horizontal)
	assert.Equal(t, []string{"2-bike-left-near", "1-car-right-close"}, desc.Narration)
	assert.Equal(t, len(detections), narration.Total(desc.Entries))
}

func TestDescribeWithVertical(t *testing.T) {
	cfg := vision.DefaultConfig()
	cfg.HorizontalOnly = false
	n, err := New(testTable(t), WithLocatorConfig(cfg))
	require.NoError(t, err)

	desc, err := n.Describe([]types.Detection{{Box: types.Box(80, 0, 90, 3), Class: 0}}, types.SceneDimensions{Width: 100, Height: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"1-bike-left-bottom-near"}, desc.Narration)
}

func TestDescribeSkipsUnrankable(t *testing.T) {
	n, err := New(testTable(t))
	require.NoError(t, err)

	detections := []types.Detection{
		{Box: types.Box(0, 0, 5, 5), Class: 0},
		{Box: types.Box(0, 0, 5, 5), Class: 7},
	}
	desc, err := n.Describe(detections, types.SceneDimensions{Width: 100, Height: 100})
	require.Error(t, err)
	require.NotNil(t, desc)

	var le *ruler.LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Index)
	assert.Equal(t, []int{2, -1}, desc.Ranks)
	assert.Equal(t, []string{"1-bike-left-near"}, desc.Narration)
}

func TestDescribeEmptyAndInvalid(t *testing.T) {
	n, err := New(testTable(t))
	require.NoError(t, err)

	desc, err := n.Describe(nil, types.SceneDimensions{Width: 10, Height: 10})
	require.NoError(t, err)
	assert.Empty(t, desc.Narration)

	_, err = n.Describe(nil, types.SceneDimensions{})
	assert.Error(t, err)
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
