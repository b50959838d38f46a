package analyzer

import (
	"fmt"
	"image"
	"strings"

	"github.com/menta2k/scene-narrator/pkg/types"
)

// SceneAnalyzer checks scene images and reports the dimensions the zone
// locator works against
type SceneAnalyzer struct {
	config Config
}

// Config holds configuration for the scene analyzer
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// New creates a new SceneAnalyzer with default configuration
func New() *SceneAnalyzer {
	return &SceneAnalyzer{
		config: Config{
			SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
			MinImageSize:     32,
		},
	}
}

// NewWithConfig creates a new SceneAnalyzer with custom configuration
func NewWithConfig(config Config) *SceneAnalyzer {
	return &SceneAnalyzer{config: config}
}

// CheckFormat rejects decoder names outside SupportedFormats
func (a *SceneAnalyzer) CheckFormat(format string) error {
	if !a.isFormatSupported(format) {
		return fmt.Errorf("unsupported image format: %s", format)
	}
	return nil
}

// SceneDimensions returns the pixel size of img
func (a *SceneAnalyzer) SceneDimensions(img image.Image) types.SceneDimensions {
	bounds := img.Bounds()
	return types.SceneDimensions{
		Width:  float64(bounds.Dx()),
		Height: float64(bounds.Dy()),
	}
}

// GetImageInfo returns basic information about an image
func (a *SceneAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	return ImageInfo{
		Width:       width,
		Height:      height,
		AspectRatio: float64(width) / float64(height),
		Area:        width * height,
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

func (a *SceneAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *SceneAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
