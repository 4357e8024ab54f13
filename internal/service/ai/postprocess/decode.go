// Package postprocess turns raw network outputs into scored boxes.
package postprocess

import (
	"image"
	"math"
)

// Candidate is a detection before non-max suppression.
type Candidate struct {
	ClassID int
	Score   float32
	Box     image.Rectangle
}

// YOLOv8Layout describes a YOLOv8 output tensor of shape [1, attrs, anchors]
// (or [1, anchors, attrs] when Transposed is set). attrs is 4 box values
// (cx, cy, w, h in input pixels) followed by one score per class.
type YOLOv8Layout struct {
	Attrs      int
	Anchors    int
	Transposed bool
}

// LayoutFromShape guesses the YOLOv8 layout from a [1, a, b] shape.
// The anchor dimension is always the larger one.
func LayoutFromShape(shape []int) (YOLOv8Layout, bool) {
	if len(shape) != 3 || shape[1] < 5 || shape[2] < 5 {
		return YOLOv8Layout{}, false
	}
	if shape[1] > shape[2] {
		return YOLOv8Layout{Attrs: shape[2], Anchors: shape[1], Transposed: true}, true
	}
	return YOLOv8Layout{Attrs: shape[1], Anchors: shape[2]}, true
}

func (l YOLOv8Layout) at(data []float32, attr, anchor int) float32 {
	if l.Transposed {
		return data[anchor*l.Attrs+attr]
	}
	return data[attr*l.Anchors+anchor]
}

// DecodeYOLOv8 keeps the best class of every anchor scoring at least
// threshold. Boxes are scaled from input to image pixels by scaleX/scaleY.
func DecodeYOLOv8(data []float32, layout YOLOv8Layout, threshold float32, scaleX, scaleY float64) []Candidate {
	if len(data) < layout.Attrs*layout.Anchors || layout.Attrs < 5 {
		return nil
	}

	var candidates []Candidate
	for i := 0; i < layout.Anchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 4; c < layout.Attrs; c++ {
			if score := layout.at(data, c, i); score > bestScore {
				best, bestScore = c-4, score
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx := float64(layout.at(data, 0, i))
		cy := float64(layout.at(data, 1, i))
		w := float64(layout.at(data, 2, i))
		h := float64(layout.at(data, 3, i))

		left := int(math.Round((cx - w/2) * scaleX))
		top := int(math.Round((cy - h/2) * scaleY))
		width := int(math.Round(w * scaleX))
		height := int(math.Round(h * scaleY))

		candidates = append(candidates, Candidate{
			ClassID: best,
			Score:   bestScore,
			Box:     image.Rect(left, top, left+width, top+height),
		})
	}
	return candidates
}

// DecodeSSD reads rows of [batch_id, class_id, confidence, x1, y1, x2, y2]
// with normalized coordinates.
func DecodeSSD(data []float32, threshold float32, width, height int) []Candidate {
	var candidates []Candidate
	for i := 0; i+7 <= len(data); i += 7 {
		confidence := data[i+2]
		if confidence < threshold {
			continue
		}

		x1 := int(data[i+3] * float32(width))
		y1 := int(data[i+4] * float32(height))
		x2 := int(data[i+5] * float32(width))
		y2 := int(data[i+6] * float32(height))

		candidates = append(candidates, Candidate{
			ClassID: int(data[i+1]),
			Score:   confidence,
			Box:     image.Rect(x1, y1, x2, y2),
		})
	}
	return candidates
}

// Clip limits a box to the image bounds.
func Clip(box image.Rectangle, width, height int) image.Rectangle {
	return box.Intersect(image.Rect(0, 0, width, height))
}
