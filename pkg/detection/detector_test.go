package detection

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/scene-narrator/pkg/types"
)

type fakeClient struct {
	result *types.DetectionResult
	err    error
	prompt string
}

func (f *fakeClient) SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error) {
	return "a street", f.err
}

func (f *fakeClient) DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error) {
	f.prompt = prompt
	return f.result, f.err
}

var classLabels = []string{"person", "bike", "car"}

func TestDetectMapsLabelsAndScales(t *testing.T) {
	fc := &fakeClient{result: &types.DetectionResult{Objects: []types.DetectedObject{
		{Label: "Car", Confidence: 0.9, Box: [4]float64{0.1, 0.2, 0.5, 0.6}},
		{Label: "dog", Confidence: 0.9, Box: [4]float64{0, 0, 1, 1}},
		{Label: " person ", Confidence: 0.8, Box: [4]float64{-0.5, 0.9, 1.5, 0.5}},
		{Label: "bike", Confidence: 0.1, Box: [4]float64{0, 0, 1, 1}},
	}}}

	got, err := NewDetector(fc).Detect(context.Background(), "m", "img", classLabels, types.SceneDimensions{Width: 200, Height: 100})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 2, got[0].Class)
	assert.InDelta(t, 10, got[0].Box.YMin, 1e-9)
	assert.InDelta(t, 40, got[0].Box.XMin, 1e-9)
	assert.InDelta(t, 50, got[0].Box.YMax, 1e-9)
	assert.InDelta(t, 120, got[0].Box.XMax, 1e-9)
	assert.Equal(t, 0.9, got[0].Score)

	assert.Equal(t, 0, got[1].Class)
	assert.Equal(t, types.Box(0, 100, 100, 180), got[1].Box)

	for _, l := range classLabels {
		assert.True(t, strings.Contains(fc.prompt, `"`+l+`"`), "prompt should list %q", l)
	}
}

func TestDetectMinConfidence(t *testing.T) {
	fc := &fakeClient{result: &types.DetectionResult{Objects: []types.DetectedObject{
		{Label: "bike", Confidence: 0.1, Box: [4]float64{0, 0, 1, 1}},
	}}}

	got, err := NewDetector(fc, WithMinConfidence(0)).Detect(context.Background(), "m", "img", classLabels, types.SceneDimensions{Width: 10, Height: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Class)
}

func TestDetectErrors(t *testing.T) {
	scene := types.SceneDimensions{Width: 10, Height: 10}
	boom := errors.New("model offline")

	_, err := NewDetector(&fakeClient{err: boom}).Detect(context.Background(), "m", "img", classLabels, scene)
	assert.ErrorIs(t, err, boom)

	_, err = NewDetector(&fakeClient{}).Detect(context.Background(), "m", "img", nil, scene)
	assert.Error(t, err)

	_, err = NewDetector(&fakeClient{}).Detect(context.Background(), "m", "img", classLabels, types.SceneDimensions{})
	assert.Error(t, err)
}

func TestTestVision(t *testing.T) {
	out, err := NewDetector(&fakeClient{}).TestVision(context.Background(), "m", "img")
	require.NoError(t, err)
	assert.Equal(t, "a street", out)
}
