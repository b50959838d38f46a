package client

import (
	"context"

	"github.com/menta2k/scene-narrator/pkg/types"
)

// VisionClient is a vision language model able to look at a base64 image
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	DetectObjects(ctx context.Context, model, prompt, imgB64 string) (*types.DetectionResult, error)
}
