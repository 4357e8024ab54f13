package models

// Detection represents a detected object kept for a batch report.
type Detection struct {
	ID         int64   `json:"id"`
	ReportID   int64   `json:"report_id"`
	FrameIndex int     `json:"frame_index"`
	Label      string  `json:"label"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}
