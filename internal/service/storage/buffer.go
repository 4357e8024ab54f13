package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
)

// SnapshotService buffers annotated frames in memory and periodically flushes them to disk.
type SnapshotService struct {
	dir         string
	limit       int
	interval    time.Duration
	snapshots   []dto.BufferedSnapshot
	bufferCount map[string]int // Ile klatek przyjęto dla danej sesji
	mu          sync.Mutex
	logger      *logger.Logger
}

// NewSnapshotService creates a SnapshotService writing to cfg.SnapshotDirectory.
func NewSnapshotService(cfg *config.Config, logger *logger.Logger) *SnapshotService {
	interval := time.Duration(cfg.SnapshotFlushInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &SnapshotService{
		dir:         cfg.SnapshotDirectory,
		limit:       cfg.SnapshotLimit,
		interval:    interval,
		snapshots:   make([]dto.BufferedSnapshot, 0),
		bufferCount: make(map[string]int),
		logger:      logger,
	}
}

// Dir returns the snapshot directory.
func (s *SnapshotService) Dir() string {
	return s.dir
}

// Run flushes the buffer on a ticker until ctx is cancelled, then flushes once more.
func (s *SnapshotService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Flush("")
		case <-ctx.Done():
			s.Flush("")
			return
		}
	}
}

// Add buffers a frame for a session. It returns false once the session's limit is reached.
func (s *SnapshotService) Add(session string, frame int, labels []string, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit <= 0 || s.bufferCount[session] >= s.limit {
		return false
	}

	s.snapshots = append(s.snapshots, dto.BufferedSnapshot{
		Session: session,
		Frame:   frame,
		Labels:  labels,
		Data:    data,
	})
	s.bufferCount[session]++
	return true
}

// Pending returns the number of buffered frames.
func (s *SnapshotService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// Flush writes buffered frames of one session (or all of them for "") to disk.
// Flushing a single session also forgets its limit counter.
func (s *SnapshotService) Flush(session string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session != "" {
		delete(s.bufferCount, session)
	}

	if len(s.snapshots) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return nil
	}

	var saved []string
	remaining := s.snapshots[:0]
	for _, snapshot := range s.snapshots {
		if session != "" && snapshot.Session != session {
			remaining = append(remaining, snapshot)
			continue
		}

		filename := SnapshotFilename(snapshot)
		fullpath := filepath.Join(s.dir, filename)

		if err := os.WriteFile(fullpath, snapshot.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}
		saved = append(saved, fullpath)
	}

	s.snapshots = remaining
	if len(saved) > 0 {
		s.logger.Info("Flushed %d snapshots to disk", len(saved))
	}
	return saved
}

// SnapshotFilename builds <session>_<frame>_<labels>.jpg with unique labels joined by "-".
func SnapshotFilename(snapshot dto.BufferedSnapshot) string {
	seen := make(map[string]bool)
	var objects []string
	for _, label := range snapshot.Labels {
		label = strings.ReplaceAll(strings.TrimSpace(label), " ", "-")
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		objects = append(objects, label)
	}

	name := "none"
	if len(objects) > 0 {
		name = strings.Join(objects, "-")
	}

	return fmt.Sprintf("%s_%05d_%s.jpg", snapshot.Session, snapshot.Frame, name)
}
