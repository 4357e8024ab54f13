package ai

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"detectlab/internal/config"
	"detectlab/internal/dto"
	"detectlab/internal/logger"
	"detectlab/internal/service/ai/postprocess"

	"gocv.io/x/gocv"
)

const (
	// FormatYOLOv8 is an Ultralytics YOLOv8 ONNX export.
	FormatYOLOv8 = "yolov8"
	// FormatSSD is a TensorFlow SSD MobileNet graph.
	FormatSSD = "ssd"

	ssdInputSize = 300
)

// DetectorService wraps one DNN network. A network is not safe for
// concurrent use; share detectors through a Pool.
type DetectorService struct {
	net        gocv.Net
	format     string
	labels     []string
	inputSize  int
	confidence float32
	nms        float32
	logger     *logger.Logger
}

// NewDetectorService loads the network described by the config.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		format:     cfg.ModelFormat,
		inputSize:  cfg.InputSize,
		confidence: float32(cfg.ConfidenceThreshold),
		nms:        float32(cfg.NMSThreshold),
		logger:     logger,
	}

	switch service.format {
	case FormatYOLOv8:
		service.labels = postprocess.COCO80
		if service.inputSize <= 0 {
			service.inputSize = 640
		}
	case FormatSSD:
		service.labels = postprocess.COCO91
		service.inputSize = ssdInputSize
	default:
		return nil, fmt.Errorf("unsupported model format: %s", cfg.ModelFormat)
	}

	if cfg.LabelsPath != "" {
		labels, err := postprocess.LoadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load labels: %w", err)
		}
		service.labels = labels
	}

	if err := service.initializeNet(cfg.ModelPath, cfg.ModelConfigPath); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet(modelPath, configPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized (%s, %d labels)", s.format, len(s.labels))
	return nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	return s.net.Close()
}

// Detect runs the network on one BGR frame.
func (s *DetectorService) Detect(mat gocv.Mat) (dto.FrameResult, error) {
	if s.net.Empty() {
		return dto.FrameResult{}, fmt.Errorf("detection network not initialized")
	}
	if mat.Empty() {
		return dto.FrameResult{}, fmt.Errorf("frame is empty")
	}

	var blob gocv.Mat
	if s.format == FormatSSD {
		blob = gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	} else {
		blob = gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(s.inputSize, s.inputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	}
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return dto.FrameResult{}, fmt.Errorf("failed to read network output: %w", err)
	}

	width, height := mat.Cols(), mat.Rows()

	var candidates []postprocess.Candidate
	if s.format == FormatSSD {
		candidates = postprocess.DecodeSSD(data, s.confidence, width, height)
	} else {
		layout, ok := postprocess.LayoutFromShape(output.Size())
		if !ok {
			return dto.FrameResult{}, fmt.Errorf("unexpected YOLOv8 output shape %v", output.Size())
		}
		scaleX := float64(width) / float64(s.inputSize)
		scaleY := float64(height) / float64(s.inputSize)
		candidates = s.suppress(postprocess.DecodeYOLOv8(data, layout, s.confidence, scaleX, scaleY))
	}

	var frame dto.FrameResult
	for _, c := range candidates {
		box := postprocess.Clip(c.Box, width, height)
		frame.Detections = append(frame.Detections, dto.Detection{
			Label:      postprocess.Label(s.labels, c.ClassID),
			Confidence: float64(c.Score),
			X:          box.Min.X,
			Y:          box.Min.Y,
			Width:      box.Dx(),
			Height:     box.Dy(),
		})
	}

	return frame, nil
}

// suppress runs non-max suppression per class.
func (s *DetectorService) suppress(candidates []postprocess.Candidate) []postprocess.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	byClass := make(map[int][]int)
	var order []int
	for i, c := range candidates {
		if _, ok := byClass[c.ClassID]; !ok {
			order = append(order, c.ClassID)
		}
		byClass[c.ClassID] = append(byClass[c.ClassID], i)
	}

	var kept []postprocess.Candidate
	for _, classID := range order {
		members := byClass[classID]
		boxes := make([]image.Rectangle, len(members))
		scores := make([]float32, len(members))
		for j, idx := range members {
			boxes[j] = candidates[idx].Box
			scores[j] = candidates[idx].Score
		}

		for _, j := range gocv.NMSBoxes(boxes, scores, s.confidence, s.nms) {
			kept = append(kept, candidates[members[j]])
		}
	}
	return kept
}

// Annotate draws boxes and "label (0.87)" captions on the frame.
func (s *DetectorService) Annotate(mat *gocv.Mat, frame dto.FrameResult) error {
	return DrawDetections(mat, frame)
}

// DrawDetections draws boxes and captions for every detection of the frame.
func DrawDetections(mat *gocv.Mat, frame dto.FrameResult) error {
	for i, det := range frame.Detections {
		clr := classColors[i%len(classColors)]
		rect := image.Rect(det.X, det.Y, det.X+det.Width, det.Y+det.Height)

		if err := gocv.Rectangle(mat, rect, clr, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %v", err)
		}

		label := fmt.Sprintf("%s (%.2f)", det.Label, det.Confidence)
		textSize := gocv.GetTextSize(label, gocv.FontHersheySimplex, 0.5, 1)

		top := det.Y
		if top < textSize.Y+6 {
			top = textSize.Y + 6
		}
		background := image.Rect(det.X, top-textSize.Y-6, det.X+textSize.X+4, top)
		if err := gocv.Rectangle(mat, background, clr, -1); err != nil {
			return fmt.Errorf("failed to draw label box: %v", err)
		}

		if err := gocv.PutText(mat, label, image.Pt(det.X+2, top-4), gocv.FontHersheySimplex, 0.5, white, 1); err != nil {
			return fmt.Errorf("failed to draw text: %v", err)
		}
	}
	return nil
}

// EncodeJPEG encodes the frame and copies the bytes out of native memory.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())
	return finalImage, nil
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 0}

var classColors = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 0},
	{R: 255, G: 112, B: 31, A: 0},
	{R: 255, G: 178, B: 29, A: 0},
	{R: 72, G: 249, B: 10, A: 0},
	{R: 26, G: 147, B: 52, A: 0},
	{R: 0, G: 212, B: 187, A: 0},
	{R: 0, G: 194, B: 255, A: 0},
	{R: 100, G: 115, B: 255, A: 0},
	{R: 132, G: 56, B: 255, A: 0},
	{R: 255, G: 55, B: 199, A: 0},
}
