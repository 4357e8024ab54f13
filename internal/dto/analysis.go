package dto

// AnalysisResult is returned after an image, a video or a camera session has been reported.
type AnalysisResult struct {
	Report ReportInfo `json:"report"`
	Frames int        `json:"frames"`
	Image  string     `json:"image,omitempty"` // base64 JPEG z ramkami, tylko dla obrazu
}

// ReportDetail is an indexed report with its per-frame detections.
type ReportDetail struct {
	Report ReportInfo    `json:"report"`
	Frames []FrameResult `json:"frames"`
}
