package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/scene-narrator/internal/utils"
	"github.com/menta2k/scene-narrator/pkg/types"
)

// MaxDownloadSize caps the body read from an image URL
const MaxDownloadSize = 32 << 20

// Processor loads scene images, encodes them for the vision model and draws
// zone overlays
type Processor struct {
	client    *http.Client
	userAgent string
}

// NewProcessor creates a processor whose downloads time out after 30 seconds
func NewProcessor() *Processor {
	return &Processor{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "scene-narrator/1.0",
	}
}

// Scene is a decoded scene image
type Scene struct {
	Image  image.Image
	Format string // decoder name: jpeg, png or webp
	Size   int64  // encoded size in bytes
}

// Open reads and decodes a scene image from a local path or an http(s) URL
func (p *Processor) Open(ctx context.Context, source string) (*Scene, error) {
	var (
		data []byte
		err  error
	)
	if isURL(source) {
		data, err = p.fetch(ctx, source)
	} else {
		data, err = readLocal(source)
	}
	if err != nil {
		return nil, err
	}

	img, format, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &Scene{Image: img, Format: format, Size: int64(len(data))}, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func readLocal(path string) ([]byte, error) {
	if !utils.IsImageFile(path) {
		return nil, fmt.Errorf("%s: not a jpg, png or webp file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

func (p *Processor) fetch(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image URL: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%s is not an image (Content-Type: %s)", imageURL, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, fmt.Errorf("image larger than %s", utils.FormatFileSize(MaxDownloadSize))
	}
	return data, nil
}

// decode tries the registered decoders first, then libwebp for the webp
// variants x/image cannot read
func decode(data []byte) (image.Image, string, error) {
	if img, format, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, format, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, "webp", nil
	}
	return nil, "", fmt.Errorf("unknown or unsupported image format")
}

// PrepareImageForModel scales img so neither side exceeds maxDim and returns
// it base64 encoded as jpg (at quality) or png
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	var err error
	if strings.EqualFold(format, "png") {
		err = (&png.Encoder{CompressionLevel: png.BestCompression}).Encode(&buf, img)
	} else {
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Save writes img in the format named by the file extension: webp, png, or
// jpg for anything else. quality applies to jpg and lossy webp.
func (p *Processor) Save(img image.Image, path string, quality int) error {
	switch utils.GetFileExtension(path) {
	case "webp":
		var buf bytes.Buffer
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return utils.WriteFileAtomic(path, buf.Bytes(), 0644)
	case "png":
		return imaging.Save(img, path)
	default:
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// Zone colors used by CreateZoneOverlay, indexed by horizontal zone
var zoneColors = [...]color.NRGBA{
	types.Left:   {0, 170, 255, 255}, // blue
	types.Middle: {0, 255, 0, 255},   // green
	types.Right:  {255, 204, 0, 255}, // gold
}

// CreateZoneOverlay draws the scene midlines and every detection box, colored
// by its horizontal zone. Boxes are in scene pixel units and are rescaled when
// the image size differs from scene.
func (p *Processor) CreateZoneOverlay(img image.Image, boxes []types.BoundingBox, zones []types.Zone, scene types.SceneDimensions) (image.Image, error) {
	if len(boxes) != len(zones) {
		return nil, fmt.Errorf("got %d boxes but %d zones", len(boxes), len(zones))
	}
	if err := scene.Validate(); err != nil {
		return nil, err
	}

	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	red := color.NRGBA{255, 0, 0, 255}                      // midlines
	stroke := int(math.Max(2, 0.004*float64(minInt(w, h)))) // ~0.4% of min side

	drawVLine(nrgba, w/2, 0, h, red)
	drawHLine(nrgba, h/2, 0, w, red)

	for i, box := range boxes {
		c := red
		if hz := zones[i].Horizontal; hz >= types.Left && hz <= types.Right {
			c = zoneColors[hz]
		}
		b := box.Normalize()
		drawBox(nrgba, b.XMin/scene.Width, b.YMin/scene.Height, b.XMax/scene.Width, b.YMax/scene.Height, w, h, c, stroke)
	}

	return nrgba, nil
}

// Helper functions
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// boxToPixels converts normalized corners to pixel coordinates
func boxToPixels(nx0, ny0, nx1, ny1 float64, w, h int) (int, int, int, int) {
	x0 := int(clamp(nx0, 0, 1)*float64(w) + 0.5)
	y0 := int(clamp(ny0, 0, 1)*float64(h) + 0.5)
	x1 := int(clamp(nx1, 0, 1)*float64(w) + 0.5)
	y1 := int(clamp(ny1, 0, 1)*float64(h) + 0.5)
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}

func drawBox(img *image.NRGBA, nx0, ny0, nx1, ny1 float64, w, h int, color color.NRGBA, stroke int) {
	x0, y0, x1, y1 := boxToPixels(nx0, ny0, nx1, ny1, w, h)
	for s := 0; s < stroke; s++ {
		drawHLine(img, y0+s, x0, x1, color)
		drawHLine(img, y1-1-s, x0, x1, color)
		drawVLine(img, x0+s, y0, y1, color)
		drawVLine(img, x1-1-s, y0, y1, color)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
