// Command detect analyses an image, a video file or a camera from the terminal
// and writes a detection report for every run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"detectlab/internal/config"
	"detectlab/internal/logger"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v2"
)

const (
	flagModel      = "model"
	flagFormat     = "format"
	flagLabels     = "labels"
	flagConfidence = "confidence"
	flagReports    = "reports"
	flagEvery      = "every"
	flagShow       = "show"
	flagSave       = "save"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "detect",
		Usage: "detect objects in images, videos and camera streams and write a report",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagModel, Usage: "path to the ONNX / TensorFlow model (MODEL_PATH)"},
			&cli.StringFlag{Name: flagFormat, Usage: "model output format: yolov8 or ssd (MODEL_FORMAT)"},
			&cli.StringFlag{Name: flagLabels, Usage: "class names file, one per line (LABELS_PATH)"},
			&cli.Float64Flag{Name: flagConfidence, Usage: "minimum detection confidence (CONFIDENCE_THRESHOLD)"},
			&cli.StringFlag{Name: flagReports, Usage: "directory for report files (REPORT_DIR)"},
			&cli.IntFlag{Name: flagEvery, Usage: "process every n-th video frame (PROCESSING_INTERVAL)"},
			&cli.BoolFlag{Name: flagShow, Usage: "show annotated frames in a window; q or Esc stops the camera"},
			&cli.BoolFlag{Name: flagSave, Usage: "save annotated images to SNAPSHOT_DIR"},
		},
		Commands: []*cli.Command{
			{
				Name:      "image",
				Usage:     "analyse a single image",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					return withRunner(c, func(r *runner) error {
						return r.image(c.Args().First())
					})
				},
			},
			{
				Name:      "video",
				Usage:     "analyse every frame of a video file",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					return withRunner(c, func(r *runner) error {
						return r.video(c.Context, c.Args().First())
					})
				},
			},
			{
				Name:      "camera",
				Usage:     "run a live session on a camera until stopped",
				ArgsUsage: "[device]",
				Action: func(c *cli.Context) error {
					return withRunner(c, func(r *runner) error {
						return r.camera(c.Context, c.Args().First())
					})
				},
			},
		},
		Action: func(c *cli.Context) error {
			return withRunner(c, func(r *runner) error {
				return r.menu(c.Context)
			})
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies the command line overrides.
func loadConfig(c *cli.Context) *config.Config {
	cfg := config.Load()

	if c.IsSet(flagModel) {
		cfg.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagFormat) {
		cfg.ModelFormat = strings.ToLower(c.String(flagFormat))
	}
	if c.IsSet(flagLabels) {
		cfg.LabelsPath = c.String(flagLabels)
	}
	if c.IsSet(flagConfidence) {
		cfg.ConfidenceThreshold = c.Float64(flagConfidence)
	}
	if c.IsSet(flagReports) {
		cfg.ReportDirectory = c.String(flagReports)
	}
	if c.IsSet(flagEvery) {
		cfg.ProcessingInterval = c.Int(flagEvery)
	}
	return cfg
}

func withRunner(c *cli.Context, fn func(*runner) error) error {
	cfg := loadConfig(c)
	log := logger.NewLogger(cfg)
	defer log.Close()

	spinner, _ := pterm.DefaultSpinner.
		WithRemoveWhenDone(true).
		WithText(fmt.Sprintf("Loading %s model %s", cfg.ModelFormat, cfg.ModelPath)).
		Start()

	r, err := newRunner(cfg, log, c.Bool(flagShow), c.Bool(flagSave))
	if spinner != nil {
		if err != nil {
			spinner.Fail(err)
		} else {
			spinner.Success("Model loaded")
		}
	}
	if err != nil {
		return err
	}
	defer r.close()

	return fn(r)
}
