package postprocess

import (
	"image"
	"os"
	"path/filepath"
	"testing"
)

// yoloTensor builds a [attrs][anchors] tensor from per-anchor rows.
func yoloTensor(rows [][]float32) []float32 {
	attrs := len(rows[0])
	data := make([]float32, attrs*len(rows))
	for i, row := range rows {
		for a, v := range row {
			data[a*len(rows)+i] = v
		}
	}
	return data
}

func TestDecodeYOLOv8(t *testing.T) {
	// cx, cy, w, h, score(person), score(car)
	data := yoloTensor([][]float32{
		{100, 100, 40, 20, 0.10, 0.90},
		{300, 200, 60, 80, 0.70, 0.20},
		{50, 50, 10, 10, 0.05, 0.10},
	})

	candidates := DecodeYOLOv8(data, YOLOv8Layout{Attrs: 6, Anchors: 3}, 0.25, 2, 0.5)

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}

	car := candidates[0]
	if car.ClassID != 1 || car.Score != 0.90 {
		t.Errorf("Expected car with 0.90, got %+v", car)
	}
	if want := image.Rect(160, 45, 240, 55); car.Box != want {
		t.Errorf("Expected box %v, got %v", want, car.Box)
	}

	if candidates[1].ClassID != 0 {
		t.Errorf("Expected person second, got %+v", candidates[1])
	}
}

func TestDecodeYOLOv8_Transposed(t *testing.T) {
	data := []float32{
		10, 10, 4, 4, 0.8, 0.1,
		20, 20, 4, 4, 0.1, 0.1,
	}

	layout, ok := LayoutFromShape([]int{1, 2, 6})
	if ok {
		t.Fatalf("Shape with fewer than 5 anchors should be rejected, got %+v", layout)
	}

	candidates := DecodeYOLOv8(data, YOLOv8Layout{Attrs: 6, Anchors: 2, Transposed: true}, 0.5, 1, 1)
	if len(candidates) != 1 || candidates[0].ClassID != 0 {
		t.Errorf("Expected one person candidate, got %+v", candidates)
	}
}

func TestLayoutFromShape(t *testing.T) {
	layout, ok := LayoutFromShape([]int{1, 84, 8400})
	if !ok || layout.Attrs != 84 || layout.Anchors != 8400 || layout.Transposed {
		t.Errorf("Unexpected layout for [1 84 8400]: %+v", layout)
	}

	layout, ok = LayoutFromShape([]int{1, 8400, 84})
	if !ok || layout.Attrs != 84 || !layout.Transposed {
		t.Errorf("Unexpected layout for [1 8400 84]: %+v", layout)
	}

	if _, ok := LayoutFromShape([]int{1, 100, 7}); !ok {
		t.Error("Expected [1 100 7] to be accepted")
	}
	if _, ok := LayoutFromShape([]int{84, 8400}); ok {
		t.Error("Expected 2-D shape to be rejected")
	}
}

func TestDecodeSSD(t *testing.T) {
	data := []float32{
		0, 1, 0.95, 0.1, 0.2, 0.5, 0.6,
		0, 18, 0.30, 0.0, 0.0, 1.0, 1.0,
		0, 3, 0.70, 0.5, 0.5, 1.0, 1.0,
	}

	candidates := DecodeSSD(data, 0.6, 200, 100)

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].ClassID != 1 || candidates[0].Box != image.Rect(20, 20, 100, 60) {
		t.Errorf("Unexpected first candidate: %+v", candidates[0])
	}
	if candidates[1].ClassID != 3 {
		t.Errorf("Unexpected second candidate: %+v", candidates[1])
	}
}

func TestLabel(t *testing.T) {
	if got := Label(COCO80, 0); got != "person" {
		t.Errorf("Expected person, got %s", got)
	}
	if got := Label(COCO91, 18); got != "dog" {
		t.Errorf("Expected dog, got %s", got)
	}
	if got := Label(COCO91, 12); got != "class12" {
		t.Errorf("Expected class12 for unused id, got %s", got)
	}
	if got := Label(COCO80, 500); got != "class500" {
		t.Errorf("Expected class500, got %s", got)
	}
	if len(COCO80) != 80 || len(COCO91) != 91 {
		t.Errorf("Unexpected vocabulary sizes %d / %d", len(COCO80), len(COCO91))
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	if err := os.WriteFile(path, []byte("person\n  bicycle \ncar\n"), 0644); err != nil {
		t.Fatalf("Failed to write labels: %v", err)
	}

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	if len(labels) != 3 || labels[1] != "bicycle" {
		t.Errorf("Unexpected labels %q", labels)
	}

	if _, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestClip(t *testing.T) {
	got := Clip(image.Rect(-10, -5, 50, 300), 40, 200)
	if want := image.Rect(0, 0, 40, 200); got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
