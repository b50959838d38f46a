package narration

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/scene-narrator/pkg/types"
)

var classLabels = []string{"person", "car", "bike"}

func zone(h types.HorizontalZone, v types.VerticalZone) types.Zone {
	return types.Zone{Horizontal: h, Vertical: v}
}

func TestAggregateScenario(t *testing.T) {
	zones := []types.Zone{
		zone(types.Left, types.Above),
		zone(types.Left, types.Above),
		zone(types.Left, types.Above),
	}

	got, err := Narrate([]int{1, 1, 1}, []int{2, 2, 2}, zones, classLabels, DefaultLabels(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"3-car-left-above-near"}, got)
}

func TestAggregateKeepsFirstSeenOrder(t *testing.T) {
	classes := []int{0, 1, 0, 2, 1, 0}
	ranks := []int{0, 3, 0, 1, 3, 3}
	zones := []types.Zone{
		zone(types.Left, types.VerticalUnset),
		zone(types.Right, types.VerticalUnset),
		zone(types.Left, types.VerticalUnset),
		zone(types.Middle, types.VerticalUnset),
		zone(types.Right, types.VerticalUnset),
		zone(types.Left, types.VerticalUnset),
	}

	entries, err := Aggregate(classes, ranks, zones, classLabels, DefaultLabels(), true)
	require.NoError(t, err)

	want := []Entry{
		{Count: 2, Class: "person", Horizontal: "left", Distance: "far"},
		{Count: 2, Class: "car", Horizontal: "right", Distance: "close"},
		{Count: 1, Class: "bike", Horizontal: "middle", Distance: "near"},
		{Count: 1, Class: "person", Horizontal: "left", Distance: "close"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"2-person-left-far", "2-car-right-close", "1-bike-middle-near", "1-person-left-close"}, Strings(entries))
}

func TestAggregateRanksSharingALabel(t *testing.T) {
	// ranks 1 and 2 both read "near" and form one group
	zones := []types.Zone{zone(types.Middle, types.Midst), zone(types.Middle, types.Midst)}

	got, err := Narrate([]int{0, 0}, []int{1, 2}, zones, classLabels, DefaultLabels(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2-person-middle-midst-near"}, got)
}

func TestAggregateHorizontalOnlyIgnoresVertical(t *testing.T) {
	zones := []types.Zone{zone(types.Left, types.Above), zone(types.Left, types.Bottom)}

	got, err := Narrate([]int{2, 2}, []int{0, 0}, zones, classLabels, DefaultLabels(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"2-bike-left-far"}, got)
}

func TestAggregateClosure(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	n := 500
	classes := make([]int, n)
	ranks := make([]int, n)
	zones := make([]types.Zone, n)
	for i := 0; i < n; i++ {
		classes[i] = r.Intn(len(classLabels))
		ranks[i] = r.Intn(4)
		zones[i] = zone(types.HorizontalZone(r.Intn(3)), types.VerticalZone(r.Intn(3)))
	}

	for _, horizontalOnly := range []bool{true, false} {
		entries, err := Aggregate(classes, ranks, zones, classLabels, DefaultLabels(), horizontalOnly)
		require.NoError(t, err)
		assert.Equal(t, n, Total(entries))

		seen := map[string]bool{}
		for _, s := range Strings(entries) {
			// strip the count so duplicates of the same phrase would show up
			phrase := strings.SplitN(s, Separator, 2)[1]
			assert.False(t, seen[phrase], "phrase %q emitted twice", phrase)
			seen[phrase] = true
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	entries, err := Aggregate(nil, nil, nil, classLabels, DefaultLabels(), true)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAggregateRangeErrors(t *testing.T) {
	ok := zone(types.Left, types.Above)
	tests := []struct {
		name    string
		classes []int
		ranks   []int
		zones   []types.Zone
		hOnly   bool
		field   string
	}{
		{"class", []int{3}, []int{0}, []types.Zone{ok}, true, "class"},
		{"negative rank", []int{0}, []int{-1}, []types.Zone{ok}, true, "rank"},
		{"rank four", []int{0}, []int{4}, []types.Zone{ok}, true, "rank"},
		{"horizontal", []int{0}, []int{0}, []types.Zone{zone(3, types.Above)}, true, "horizontal zone"},
		{"unset vertical", []int{0}, []int{0}, []types.Zone{zone(types.Left, types.VerticalUnset)}, false, "vertical zone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate(tt.classes, tt.ranks, tt.zones, classLabels, DefaultLabels(), tt.hOnly)
			var re *RangeError
			require.True(t, errors.As(err, &re), "got %v", err)
			assert.Equal(t, tt.field, re.Field)
		})
	}
}

func TestAggregateLengthMismatch(t *testing.T) {
	_, err := Aggregate([]int{0, 1}, []int{0}, nil, classLabels, DefaultLabels(), true)
	assert.Error(t, err)
}

func TestLabelsValidate(t *testing.T) {
	short := DefaultLabels()
	short.Distance = short.Distance[:3]

	dashed := DefaultLabels()
	dashed.Horizontal = []string{"far-left", "middle", "right"}

	slashed := DefaultLabels()
	slashed.Vertical = []string{"up/top", "midst", "bottom"}

	empty := DefaultLabels()
	empty.Distance = []string{"far", "", "near", "close"}

	assert.NoError(t, DefaultLabels().Validate())
	for name, l := range map[string]Labels{"short": short, "dashed": dashed, "slashed": slashed, "empty": empty} {
		assert.Error(t, l.Validate(), name)

		_, err := Aggregate(nil, nil, nil, classLabels, l, true)
		assert.Error(t, err, name)
	}
}

func TestAssetName(t *testing.T) {
	assert.Equal(t, "1-car-left-near", AssetName(1, "car", "left", "", "near"))
	assert.Equal(t, "5-dog-right-bottom-far", AssetName(5, "dog", "right", "bottom", "far"))
}
