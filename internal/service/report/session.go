package report

import (
	"errors"
	"sync"
	"time"

	"detectlab/internal/dto"

	"github.com/google/uuid"
)

var (
	// ErrSessionFinalized is returned by a second Finalize call.
	ErrSessionFinalized = errors.New("session already finalized")
	// ErrSessionClosed is returned by Observe after Finalize.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionNotFound is returned when stopping a session nobody started.
	ErrSessionNotFound = errors.New("session not found")
)

// Session collects the frames of one analysis run and produces exactly one Report.
type Session struct {
	ID      string
	Source  string
	Mode    Mode
	Started time.Time

	mu        sync.Mutex
	frames    []dto.FrameResult
	counter   *Counter
	observed  int
	finalized bool
}

// NewBatchSession starts a session whose report lists every detection.
func NewBatchSession(source string) *Session {
	return newSession(source, ModeBatch)
}

// NewLiveSession starts a session that only keeps per-class counts.
func NewLiveSession(source string) *Session {
	return newSession(source, ModeLive)
}

func newSession(source string, mode Mode) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Source:  source,
		Mode:    mode,
		Started: time.Now(),
		counter: NewCounter(),
	}
}

// Observe records one processed frame.
func (s *Session) Observe(frame dto.FrameResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return ErrSessionClosed
	}

	s.observed++
	s.counter.AddFrame(frame)

	if s.Mode == ModeBatch {
		detections := make([]dto.Detection, len(frame.Detections))
		copy(detections, frame.Detections)
		s.frames = append(s.frames, dto.FrameResult{Index: frame.Index, Detections: detections})
	}
	return nil
}

// Frames returns the number of frames observed so far.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.observed
}

// Total returns the running number of detections.
func (s *Session) Total() int {
	return s.counter.Total()
}

// Classes returns the running per-class counts.
func (s *Session) Classes() []dto.ClassCount {
	return s.counter.Snapshot()
}

// Results returns the retained frames of a batch session.
func (s *Session) Results() []dto.FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]dto.FrameResult, len(s.frames))
	copy(results, s.frames)
	return results
}

// Finalize closes the session and builds its report. Only the first call succeeds.
func (s *Session) Finalize(agg *Aggregator) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return Report{}, ErrSessionFinalized
	}
	s.finalized = true

	var r Report
	if s.Mode == ModeLive {
		r = agg.FromCounter(s.counter, s.Source)
	} else {
		r = agg.FromResults(s.frames, s.Source)
	}
	r.Session = s.ID
	return r, nil
}
