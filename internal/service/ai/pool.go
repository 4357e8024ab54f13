package ai

import (
	"context"
	"fmt"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"

	"gocv.io/x/gocv"
)

// Pool hands out detectors to one caller at a time.
type Pool struct {
	detectors chan *DetectorService
	all       []*DetectorService
}

// NewPool loads cfg.ProcessingWorkers networks (at least one).
func NewPool(cfg *config.Config, logger *logger.Logger) (*Pool, error) {
	size := cfg.ProcessingWorkers
	if size < 1 {
		size = 1
	}

	p := &Pool{detectors: make(chan *DetectorService, size)}
	for i := 0; i < size; i++ {
		ds, err := NewDetectorService(cfg, logger) // załaduj model osobno
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to load detector %d: %w", i, err)
		}
		p.all = append(p.all, ds)
		p.detectors <- ds
	}
	return p, nil
}

// Acquire waits for a free detector.
func (p *Pool) Acquire(ctx context.Context) (*DetectorService, error) {
	select {
	case ds := <-p.detectors:
		return ds, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a detector to the pool.
func (p *Pool) Release(ds *DetectorService) {
	p.detectors <- ds
}

// Size returns the number of detectors.
func (p *Pool) Size() int {
	return len(p.all)
}

// Close releases every network.
func (p *Pool) Close() {
	for _, ds := range p.all {
		ds.Close()
	}
}

// Detect runs one frame on the next free detector.
func (p *Pool) Detect(mat gocv.Mat) (dto.FrameResult, error) {
	ds, err := p.Acquire(context.Background())
	if err != nil {
		return dto.FrameResult{}, err
	}
	defer p.Release(ds)

	return ds.Detect(mat)
}

// Annotate draws the frame's detections; it needs no network.
func (p *Pool) Annotate(mat *gocv.Mat, frame dto.FrameResult) error {
	return DrawDetections(mat, frame)
}
