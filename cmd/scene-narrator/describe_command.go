package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	scenenarrator "github.com/menta2k/scene-narrator"
	"github.com/menta2k/scene-narrator/internal/utils"
	"github.com/menta2k/scene-narrator/pkg/analyzer"
	"github.com/menta2k/scene-narrator/pkg/client"
	"github.com/menta2k/scene-narrator/pkg/detection"
	"github.com/menta2k/scene-narrator/pkg/llamacpp"
	"github.com/menta2k/scene-narrator/pkg/ollama"
	"github.com/menta2k/scene-narrator/pkg/processing"
	"github.com/menta2k/scene-narrator/pkg/ruler"
	"github.com/menta2k/scene-narrator/pkg/types"
)

// detectionsFile is the offline input of describe: a scene and its boxes
type detectionsFile struct {
	Scene      types.SceneDimensions `json:"scene" yaml:"scene"`
	Detections []types.Detection     `json:"detections" yaml:"detections"`
}

// imageSummary describes the decoded input image
type imageSummary struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Format      string  `json:"format"`
	Size        string  `json:"size"`
}

type describeOutput struct {
	Source     string                `json:"source"`
	Image      *imageSummary         `json:"image,omitempty"`
	Scene      types.SceneDimensions `json:"scene"`
	Detections []types.Detection     `json:"detections"`
	*scenenarrator.Description
}

func newDescribeCommand(ctx *commandContext) *cobra.Command {
	var tablePath, detectionsPath, overlayPath, model, host string
	var checkVision bool

	cmd := &cobra.Command{
		Use:   "describe [image|url]",
		Short: "Narrate the objects in an image, or in a detections file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.loggerFor(cmd)

			if len(args) == 0 && detectionsPath == "" {
				return errors.New("describe needs an image or --detections")
			}
			if tablePath == "" {
				tablePath = cfg.Ruler.Table
			}
			if model == "" {
				model = cfg.Detection.Model
			}
			if host == "" {
				host = cfg.Detection.Host
			}

			table, err := ruler.LoadTable(tablePath)
			if err != nil {
				return err
			}
			narrator, err := scenenarrator.NewWithConfig(table, cfg.Locator, cfg.Labels)
			if err != nil {
				return err
			}

			out := describeOutput{}
			if detectionsPath != "" {
				in, err := loadDetections(detectionsPath)
				if err != nil {
					return err
				}
				out.Source, out.Scene, out.Detections = detectionsPath, in.Scene, in.Detections
			} else {
				source := args[0]
				processor := processing.NewProcessor()
				sceneAnalyzer := analyzer.New()

				loaded, err := processor.Open(cmd.Context(), source)
				if err != nil {
					return fmt.Errorf("failed to load image: %w", err)
				}
				img := loaded.Image
				if err := sceneAnalyzer.CheckFormat(loaded.Format); err != nil {
					return err
				}
				if err := sceneAnalyzer.ValidateImage(img); err != nil {
					return err
				}
				scene := sceneAnalyzer.SceneDimensions(img)
				info := sceneAnalyzer.GetImageInfo(img)
				out.Image = &imageSummary{
					Width:       info.Width,
					Height:      info.Height,
					AspectRatio: info.AspectRatio,
					Format:      loaded.Format,
					Size:        utils.FormatFileSize(loaded.Size),
				}

				imgB64, err := processor.PrepareImageForModel(img, cfg.Detection.ImageFormat, cfg.Detection.MaxImageSize, 85)
				if err != nil {
					return fmt.Errorf("failed to encode image: %w", err)
				}

				timeout, err := cfg.DetectionTimeout()
				if err != nil {
					return err
				}
				visionClient, err := newVisionClient(cfg.Detection.Backend, host, timeout)
				if err != nil {
					return err
				}
				detector := detection.NewDetector(visionClient,
					detection.WithMinConfidence(cfg.Detection.MinConfidence),
					detection.WithLogger(logger))

				if checkVision {
					reply, err := detector.TestVision(cmd.Context(), model, imgB64)
					if err != nil {
						return fmt.Errorf("vision check failed: %w", err)
					}
					logger.Info("vision check", "model", model, "reply", reply)
				}

				logger.Info("detecting objects", "source", source, "model", model, "width", scene.Width, "height", scene.Height, "size", out.Image.Size)
				detections, err := detector.Detect(cmd.Context(), model, imgB64, table.Labels(), scene)
				if err != nil {
					return fmt.Errorf("detection failed: %w", err)
				}
				out.Source, out.Scene, out.Detections = source, scene, detections

				if overlayPath != "" {
					boxes := make([]types.BoundingBox, len(detections))
					for i, d := range detections {
						boxes[i] = d.Box
					}
					overlay, err := processor.CreateZoneOverlay(img, boxes, narrator.Locator().Locate(boxes, scene), scene)
					if err != nil {
						return err
					}
					if err := processor.Save(overlay, overlayPath, 92); err != nil {
						return fmt.Errorf("failed to save overlay: %w", err)
					}
					logger.Info("overlay written", "path", overlayPath)
				}
			}

			desc, describeErr := narrator.Describe(out.Detections, out.Scene)
			if desc == nil {
				return describeErr
			}
			if describeErr != nil {
				logger.Warn("some detections were not ranked", "error", describeErr)
			}
			out.Description = desc

			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, out)
			}

			labels := table.Labels()
			rows := make([][]string, 0, len(out.Detections))
			for i, d := range out.Detections {
				class := strconv.Itoa(d.Class)
				if d.Class >= 0 && d.Class < len(labels) {
					class = labels[d.Class]
				}
				vertical := "-"
				if desc.Zones[i].HasVertical() {
					vertical = desc.Zones[i].Vertical.String()
				}
				rows = append(rows, []string{
					class,
					desc.Zones[i].Horizontal.String(),
					vertical,
					strconv.Itoa(desc.Ranks[i]),
					formatArea(d.Box.Area()),
				})
			}
			w := cmd.OutOrStdout()
			if out.Image != nil {
				fmt.Fprintf(w, "Image: %dx%d %s, %s\n", out.Image.Width, out.Image.Height, out.Image.Format, out.Image.Size)
			}
			fmt.Fprintln(w, renderTable(
				[]string{"Class", "Horizontal", "Vertical", "Rank", "Area"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			for _, s := range desc.Narration {
				fmt.Fprintln(w, s)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tablePath, "table", "t", "", "Fitted size table")
	cmd.Flags().StringVar(&detectionsPath, "detections", "", "Read detections from a json/yaml file instead of running a model")
	cmd.Flags().StringVar(&overlayPath, "overlay", "", "Write a zone overlay image (jpg, png or webp)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Vision model name")
	cmd.Flags().StringVar(&host, "host", "", "Vision model server URL")
	cmd.Flags().BoolVar(&checkVision, "check-vision", false, "Ask the model to describe the image before detecting objects")
	return cmd
}

func newVisionClient(backend, host string, timeout time.Duration) (client.VisionClient, error) {
	switch backend {
	case "llamacpp":
		return llamacpp.NewClient(host, timeout)
	default:
		return ollama.NewClientWithTimeout(host, timeout)
	}
}

func loadDetections(path string) (*detectionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read detections: %w", err)
	}
	// YAML is a superset of JSON
	var in detectionsFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("failed to parse detections: %w", err)
	}
	return &in, nil
}
