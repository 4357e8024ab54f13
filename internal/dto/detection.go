package dto

// Detection is one recognized object instance in a frame.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// FrameResult holds all detections produced for one image or video frame.
type FrameResult struct {
	Index      int         `json:"index"`
	Detections []Detection `json:"detections"`
}

// Labels returns the class labels of the frame in detection order.
func (f FrameResult) Labels() []string {
	labels := make([]string, 0, len(f.Detections))
	for _, det := range f.Detections {
		labels = append(labels, det.Label)
	}
	return labels
}
