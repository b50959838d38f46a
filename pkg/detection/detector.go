package detection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/menta2k/scene-narrator/pkg/client"
	"github.com/menta2k/scene-narrator/pkg/types"
)

// SimpleTestPrompt for testing if the model can see images
const SimpleTestPrompt = `What do you see in this image? Describe it briefly.`

// DefaultMinConfidence drops detections the model is unsure about
const DefaultMinConfidence = 0.3

const promptTemplate = `You are an object detector.

Find every visible object whose class is one of: %s.

Return JSON only:
{
  "objects": [
    {"label": "class name", "confidence": 0.0, "box": [ymin, xmin, ymax, xmax]}
  ],
  "description": "short neutral sentence (<= 20 words)"
}

HARD RULES
- "label" must be copied exactly from the class list above.
- "box" is [ymin, xmin, ymax, xmax], normalized to [0,1] (NOT pixels), origin at the top-left.
- One entry per object instance, even when several share a class.
- If nothing from the list is visible, return {"objects": [], "description": "..."}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Prompt builds the detection prompt restricted to classLabels
func Prompt(classLabels []string) string {
	quoted := make([]string, len(classLabels))
	for i, l := range classLabels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(quoted, ", "))
}

// Detector turns vision model replies into class-indexed pixel detections
type Detector struct {
	client        client.VisionClient
	minConfidence float64
	logger        *slog.Logger
}

// Option configures a Detector
type Option func(*Detector)

// WithMinConfidence sets the confidence below which objects are dropped
func WithMinConfidence(c float64) Option {
	return func(d *Detector) { d.minConfidence = c }
}

// WithLogger sets the logger used for dropped objects
func WithLogger(l *slog.Logger) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDetector creates a new detector with a vision client
func NewDetector(client client.VisionClient, opts ...Option) *Detector {
	d := &Detector{
		client:        client,
		minConfidence: DefaultMinConfidence,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect asks the model for objects of classLabels and returns them in scene
// pixel units, in the order the model reported them
func (d *Detector) Detect(ctx context.Context, model, imageB64 string, classLabels []string, scene types.SceneDimensions) ([]types.Detection, error) {
	if len(classLabels) == 0 {
		return nil, fmt.Errorf("class labels cannot be empty")
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	result, err := d.client.DetectObjects(ctx, model, Prompt(classLabels), imageB64)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(classLabels))
	for i, l := range classLabels {
		key := normalizeLabel(l)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	detections := make([]types.Detection, 0, len(result.Objects))
	for _, obj := range result.Objects {
		class, ok := index[normalizeLabel(obj.Label)]
		if !ok {
			d.logger.Debug("dropping object outside the vocabulary", "label", obj.Label)
			continue
		}
		if obj.Confidence < d.minConfidence {
			d.logger.Debug("dropping low confidence object", "label", obj.Label, "confidence", obj.Confidence)
			continue
		}
		detections = append(detections, types.Detection{
			Box:   scaleBox(obj.Box, scene),
			Class: class,
			Score: obj.Confidence,
		})
	}
	return detections, nil
}

// TestVision tests if the model can actually see the image with a simple prompt
func (d *Detector) TestVision(ctx context.Context, model, imageB64 string) (string, error) {
	return d.client.SimpleQuery(ctx, model, SimpleTestPrompt, imageB64)
}

func normalizeLabel(l string) string {
	return strings.ToLower(strings.TrimSpace(l))
}

// scaleBox clamps a normalized [ymin, xmin, ymax, xmax] box to [0,1] and
// scales it to the scene
func scaleBox(b [4]float64, scene types.SceneDimensions) types.BoundingBox {
	return types.Box(
		clamp(b[0], 0, 1)*scene.Height,
		clamp(b[1], 0, 1)*scene.Width,
		clamp(b[2], 0, 1)*scene.Height,
		clamp(b[3], 0, 1)*scene.Width,
	).Normalize()
}

// clamp ensures a value is within the given bounds
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
