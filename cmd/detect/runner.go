package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"detectlab/internal/config"
	"detectlab/internal/logger"
	"detectlab/internal/service/ai"
	"detectlab/internal/service/capture"
	"detectlab/internal/service/report"
	"detectlab/internal/service/storage"

	"github.com/pterm/pterm"
	"gocv.io/x/gocv"
)

const windowName = "detectlab"

// Klawisze zamykające podgląd
const (
	keyQ   = 'q'
	keyEsc = 27
)

type runner struct {
	cfg        *config.Config
	logger     *logger.Logger
	detector   *ai.DetectorService
	aggregator *report.Aggregator
	writer     *report.Writer
	snapshots  *storage.SnapshotService
	window     *gocv.Window
	save       bool
}

func newRunner(cfg *config.Config, log *logger.Logger, show, save bool) (*runner, error) {
	detector, err := ai.NewDetectorService(cfg, log)
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:        cfg,
		logger:     log,
		detector:   detector,
		aggregator: report.NewAggregator(nil),
		writer:     report.NewWriter(cfg.ReportDirectory),
		snapshots:  storage.NewSnapshotService(cfg, log),
		save:       save,
	}
	if show {
		r.window = gocv.NewWindow(windowName)
	}
	return r, nil
}

func (r *runner) close() {
	if r.window != nil {
		r.window.Close()
	}
	r.detector.Close()
}

// menu is the interactive entry point used when no subcommand is given.
func (r *runner) menu(ctx context.Context) error {
	options := []string{"1. Image", "2. Video", "3. Camera", "Exit"}

	choice, err := pterm.DefaultInteractiveSelect.WithOptions(options).Show("What do you want to analyse?")
	if err != nil {
		return err
	}

	switch choice {
	case options[0]:
		path, err := pterm.DefaultInteractiveTextInput.Show("Image path")
		if err != nil {
			return err
		}
		return r.image(strings.TrimSpace(path))
	case options[1]:
		path, err := pterm.DefaultInteractiveTextInput.Show("Video path")
		if err != nil {
			return err
		}
		return r.video(ctx, strings.TrimSpace(path))
	case options[2]:
		return r.camera(ctx, "")
	default:
		return nil
	}
}

func (r *runner) image(path string) error {
	if path == "" {
		return errors.New("image path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	session := report.NewBatchSession(path)
	annotated, frame, err := capture.Image(r.detector, data)
	if err != nil {
		return err
	}
	if err := session.Observe(frame); err != nil {
		return err
	}

	pterm.Info.Printfln("Detected in this image: %s", report.FrameSummary(frame))

	if r.save {
		r.snapshots.Add(session.ID, frame.Index, frame.Labels(), annotated)
	}

	if r.window != nil {
		mat, err := gocv.IMDecode(annotated, gocv.IMReadColor)
		if err == nil {
			r.window.IMShow(mat)
			r.window.WaitKey(0)
			mat.Close()
		}
	}

	return r.finish(session)
}

func (r *runner) video(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("video path is required")
	}

	video, err := capture.Open(path)
	if err != nil {
		return err
	}
	defer video.Close()

	session := report.NewBatchSession(path)
	if err := r.loop(ctx, session, video); err != nil {
		return err
	}
	return r.finish(session)
}

func (r *runner) camera(ctx context.Context, device string) error {
	if device == "" {
		device = r.cfg.CameraDevice
	}

	camera, err := capture.Open(device)
	if err != nil {
		return err
	}
	defer camera.Close()

	session := report.NewLiveSession("camera " + device)
	if r.window != nil {
		pterm.Info.Println("Press q or Esc in the window (or Ctrl+C) to stop")
	} else {
		pterm.Info.Println("Press Ctrl+C to stop")
	}

	if err := r.loop(ctx, session, camera); err != nil {
		return err
	}
	return r.finish(session)
}

func (r *runner) loop(ctx context.Context, session *report.Session, src *gocv.VideoCapture) error {
	opts := capture.Options{EveryNth: r.cfg.ProcessingInterval, Annotate: r.window != nil || r.save}

	_, err := capture.Loop(ctx, r.detector, src, opts, func(f capture.Frame) error {
		if err := session.Observe(f.Result); err != nil {
			return capture.ErrStop
		}

		pterm.Printfln("frame %5d  %s", f.Result.Index, report.FrameSummary(f.Result))

		if r.save && len(f.Result.Detections) > 0 {
			if annotated, err := ai.EncodeJPEG(f.Mat); err == nil {
				r.snapshots.Add(session.ID, f.Result.Index, f.Result.Labels(), annotated)
			}
		}

		if r.window != nil {
			r.window.IMShow(f.Mat)
			if key := r.window.WaitKey(1); key == keyQ || key == keyEsc {
				return capture.ErrStop
			}
		}
		return nil
	})
	return err
}

// finish finalizes the session, prints the report and writes it to disk.
func (r *runner) finish(session *report.Session) error {
	rep, err := session.Finalize(r.aggregator)
	if err != nil {
		return err
	}

	path, err := r.writer.Write(rep)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(report.Render(rep))
	if len(rep.Classes) > 0 {
		fmt.Println(report.Table(rep))
	}

	for _, saved := range r.snapshots.Flush(session.ID) {
		pterm.Info.Printfln("Annotated frame saved to %s", saved)
	}
	pterm.Success.Printfln("Report saved to %s", path)
	return nil
}
