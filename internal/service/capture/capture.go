// Package capture feeds images, video files and cameras through a detector.
package capture

import (
	"context"
	"errors"
	"fmt"

	"detectlab/internal/dto"
	"detectlab/internal/service/ai"

	"gocv.io/x/gocv"
)

var (
	// ErrStop can be returned from a FrameFunc to end the loop without error.
	ErrStop = errors.New("capture stopped")
	// ErrNoFrames means the source did not deliver a single frame.
	ErrNoFrames = errors.New("source delivered no frames")
)

// Detector is the part of ai.DetectorService (or ai.Pool) used here.
type Detector interface {
	Detect(mat gocv.Mat) (dto.FrameResult, error)
	Annotate(mat *gocv.Mat, frame dto.FrameResult) error
}

// Frame is handed to a FrameFunc. Mat is only valid during the call.
type Frame struct {
	Result dto.FrameResult
	Mat    gocv.Mat
}

// FrameFunc receives every processed frame.
type FrameFunc func(Frame) error

// Options controls Loop.
type Options struct {
	EveryNth int  // Co którą klatkę przetwarzać
	Annotate bool // Rysuj ramki przed wywołaniem FrameFunc
}

// Open opens a camera index ("0") or a file path / stream URL.
func Open(source string) (*gocv.VideoCapture, error) {
	capture, err := gocv.OpenVideoCapture(source)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", source, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("failed to open %s", source)
	}
	return capture, nil
}

// Image decodes an encoded image, detects objects and returns the annotated JPEG.
func Image(det Detector, data []byte) ([]byte, dto.FrameResult, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, dto.FrameResult{}, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, dto.FrameResult{}, fmt.Errorf("failed to decode image: empty result")
	}

	result, err := det.Detect(mat)
	if err != nil {
		return nil, dto.FrameResult{}, err
	}

	if err := det.Annotate(&mat, result); err != nil {
		return nil, result, err
	}

	annotated, err := ai.EncodeJPEG(mat)
	if err != nil {
		return nil, result, err
	}
	return annotated, result, nil
}

// Loop reads frames from src until the source ends, ctx is cancelled or
// onFrame returns an error. It returns the number of processed frames.
// A source that fails on the very first read yields ErrNoFrames.
func Loop(ctx context.Context, det Detector, src *gocv.VideoCapture, opts Options, onFrame FrameFunc) (int, error) {
	everyNth := opts.EveryNth
	if everyNth < 1 {
		everyNth = 1
	}

	img := gocv.NewMat()
	defer img.Close()

	read, processed := 0, 0
	for {
		select {
		case <-ctx.Done():
			return processed, nil
		default:
		}

		if ok := src.Read(&img); !ok || img.Empty() {
			if read == 0 {
				return 0, ErrNoFrames
			}
			return processed, nil
		}

		index := read
		read++
		if index%everyNth != 0 {
			continue
		}

		result, err := det.Detect(img)
		if err != nil {
			return processed, fmt.Errorf("frame %d: %w", index, err)
		}
		result.Index = index

		if opts.Annotate {
			if err := det.Annotate(&img, result); err != nil {
				return processed, fmt.Errorf("frame %d: %w", index, err)
			}
		}

		processed++
		if err := onFrame(Frame{Result: result, Mat: img}); err != nil {
			if errors.Is(err, ErrStop) {
				return processed, nil
			}
			return processed, err
		}
	}
}
