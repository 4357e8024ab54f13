package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"
)

const filenameLayout = "20060102_150405"

// ErrInvalidFilename is returned by ParseFilename for names outside the report pattern.
var ErrInvalidFilename = errors.New("invalid report filename")

var filenamePattern = regexp.MustCompile(`^report_(\d{8}_\d{6})(?:_(\d+))?\.txt$`)

// Writer persists rendered reports into a directory.
type Writer struct {
	dir string
	mu  sync.Mutex
}

// NewWriter creates a Writer for dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the reports directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write renders r and stores it as report_<YYYYMMDD>_<HHMMSS>.txt. The file
// appears complete or not at all and never replaces an existing report, even
// one written by another process; a report generated in the same second as
// an existing one gets a numeric suffix.
func (w *Writer) Write(r Report) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(w.dir, ".report-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp report: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeAndClose(tmp, []byte(Render(r))); err != nil {
		return "", err
	}

	return w.publish(tmpPath, r.GeneratedAt)
}

func writeAndClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync report: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return fmt.Errorf("failed to chmod report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}
	return nil
}

// publish hard-links the finished temp file under the first free report
// name. Link fails when the name is taken, so the check and the claim are
// one step.
func (w *Writer) publish(tmpPath string, generated time.Time) (string, error) {
	stamp := generated.Format(filenameLayout)
	name := "report_" + stamp + ".txt"

	for n := 2; ; n++ {
		target := filepath.Join(w.dir, name)
		err := os.Link(tmpPath, target)
		if err == nil {
			return target, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to store report: %w", err)
		}
		name = "report_" + stamp + "_" + strconv.Itoa(n) + ".txt"
	}
}

// Filename returns the base report filename for a generation time.
func Filename(generated time.Time) string {
	return "report_" + generated.Format(filenameLayout) + ".txt"
}

// ParseFilename extracts the generation time from a report filename.
func ParseFilename(name string) (time.Time, error) {
	m := filenamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidFilename, name)
	}

	ts, err := time.ParseInLocation(filenameLayout, m[1], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrInvalidFilename, name, err)
	}
	return ts, nil
}
