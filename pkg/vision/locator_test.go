package vision

import (
	"context"
	"math/rand"
	"testing"

	"github.com/menta2k/scene-narrator/pkg/types"
)

var scene100 = types.SceneDimensions{Width: 100, Height: 100}

// randomBoxes creates n boxes inside a w x h scene
func randomBoxes(n int, w, h float64, seed int64) []types.BoundingBox {
	r := rand.New(rand.NewSource(seed))
	boxes := make([]types.BoundingBox, n)
	for i := range boxes {
		x0, x1 := r.Float64()*w, r.Float64()*w
		y0, y1 := r.Float64()*h, r.Float64()*h
		boxes[i] = types.Box(y0, x0, y1, x1)
	}
	return boxes
}

func TestNew(t *testing.T) {
	locator := New()
	if locator == nil {
		t.Fatal("New() returned nil")
	}

	cfg := locator.Config()
	if cfg.VPoint != 0.3 || cfg.HPoint != 0.3 {
		t.Errorf("Expected default points 0.3/0.3, got %g/%g", cfg.VPoint, cfg.HPoint)
	}
	if !cfg.HorizontalOnly {
		t.Error("Expected horizontal-only mode by default")
	}
}

func TestLocatorConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LocatorConfig
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero v_point", LocatorConfig{VPoint: 0, HPoint: 0.3}, true},
		{"one h_point", LocatorConfig{VPoint: 0.3, HPoint: 1}, true},
		{"negative", LocatorConfig{VPoint: -0.1, HPoint: 0.3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLocateScenario(t *testing.T) {
	zones := Locate([]types.BoundingBox{types.Box(10, 10, 30, 30)}, scene100, 0.3, 0.3, false)

	if len(zones) != 1 {
		t.Fatalf("Expected 1 zone, got %d", len(zones))
	}
	if zones[0].Horizontal != types.Left {
		t.Errorf("Expected left, got %v", zones[0].Horizontal)
	}
	if zones[0].Vertical != types.Above {
		t.Errorf("Expected above, got %v", zones[0].Vertical)
	}
}

func TestLocateHorizontalOnlyLeavesVerticalUnset(t *testing.T) {
	zones := New().Locate([]types.BoundingBox{types.Box(60, 70, 90, 95)}, scene100)

	if zones[0].Horizontal != types.Right {
		t.Errorf("Expected right, got %v", zones[0].Horizontal)
	}
	if zones[0].HasVertical() {
		t.Errorf("Expected unset vertical zone, got %v", zones[0].Vertical)
	}
}

func TestLocateEntirelyOneSideIgnoresPoint(t *testing.T) {
	left := types.Box(0, 5, 10, 50)   // right edge on the midline
	right := types.Box(0, 50, 10, 99) // left edge on the midline

	for _, p := range []float64{0.01, 0.3, 0.5, 0.99} {
		zones := Locate([]types.BoundingBox{left, right}, scene100, p, p, true)
		if zones[0].Horizontal != types.Left {
			t.Errorf("v_point %g: expected left, got %v", p, zones[0].Horizontal)
		}
		if zones[1].Horizontal != types.Right {
			t.Errorf("v_point %g: expected right, got %v", p, zones[1].Horizontal)
		}
	}
}

func TestLocateStraddling(t *testing.T) {
	tests := []struct {
		name   string
		box    types.BoundingBox
		vPoint float64
		want   types.HorizontalZone
	}{
		// width 20, threshold 6: 10 left of the midline
		{"centered low point", types.Box(0, 40, 10, 60), 0.3, types.Left},
		// width 20, threshold 12: neither side reaches it
		{"centered high point", types.Box(0, 40, 10, 60), 0.6, types.Middle},
		// width 40, threshold 12: only 2 left, 38 right
		{"mostly right", types.Box(0, 48, 10, 88), 0.3, types.Right},
		// width 10, threshold 3: 2 left, 8 right
		{"barely straddling", types.Box(0, 48, 10, 58), 0.3, types.Right},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := Locate([]types.BoundingBox{tt.box}, scene100, tt.vPoint, 0.3, true)
			if zones[0].Horizontal != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, zones[0].Horizontal)
			}
		})
	}
}

func TestLocateVerticalUsesSceneHeight(t *testing.T) {
	// wide scene: the vertical pass must split at height/2 = 20, not width/2
	scene := types.SceneDimensions{Width: 200, Height: 40}
	zones := Locate([]types.BoundingBox{types.Box(25, 0, 35, 10)}, scene, 0.3, 0.3, false)

	if zones[0].Vertical != types.Bottom {
		t.Errorf("Expected bottom, got %v", zones[0].Vertical)
	}
}

func TestLocateDegenerateBoxes(t *testing.T) {
	boxes := []types.BoundingBox{
		types.Box(10, 50, 10, 50), // zero area on both midlines
		types.Box(10, 20, 30, 20), // zero width
		types.Box(30, 80, 10, 60), // inverted on both axes
	}

	zones := Locate(boxes, scene100, 0.3, 0.3, false)

	if zones[0].Horizontal != types.Left || zones[0].Vertical != types.Above {
		t.Errorf("Zero-area box: got %+v", zones[0])
	}
	if zones[1].Horizontal != types.Left {
		t.Errorf("Zero-width box: expected left, got %v", zones[1].Horizontal)
	}
	if zones[2].Horizontal != types.Right || zones[2].Vertical != types.Above {
		t.Errorf("Inverted box: got %+v", zones[2])
	}
}

func TestLocateIsPure(t *testing.T) {
	boxes := randomBoxes(200, 640, 480, 7)
	scene := types.SceneDimensions{Width: 640, Height: 480}

	first := Locate(boxes, scene, 0.3, 0.3, false)
	second := Locate(boxes, scene, 0.3, 0.3, false)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Box %d: %+v != %+v", i, first[i], second[i])
		}
	}

	// a single box classified alone matches its batch result
	for i := range boxes {
		alone := Locate(boxes[i:i+1], scene, 0.3, 0.3, false)[0]
		if alone != first[i] {
			t.Fatalf("Box %d: alone %+v, in batch %+v", i, alone, first[i])
		}
	}
}

func TestLocateConcurrentMatchesSequential(t *testing.T) {
	boxes := randomBoxes(1000, 1920, 1080, 42)
	scene := types.SceneDimensions{Width: 1920, Height: 1080}
	locator := NewWithConfig(LocatorConfig{VPoint: 0.25, HPoint: 0.4})

	want := locator.Locate(boxes, scene)
	for _, workers := range []int{0, 1, 3, 8, 2000} {
		got, err := locator.LocateConcurrent(context.Background(), boxes, scene, workers)
		if err != nil {
			t.Fatalf("workers %d: %v", workers, err)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers %d, box %d: %+v != %+v", workers, i, got[i], want[i])
			}
		}
	}
}

func TestLocateConcurrentCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().LocateConcurrent(ctx, randomBoxes(10, 100, 100, 1), scene100, 2)
	if err == nil {
		t.Error("Expected error from canceled context")
	}
}

func BenchmarkLocate(b *testing.B) {
	boxes := randomBoxes(100, 1920, 1080, 1)
	scene := types.SceneDimensions{Width: 1920, Height: 1080}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Locate(boxes, scene, 0.3, 0.3, false)
	}
}
