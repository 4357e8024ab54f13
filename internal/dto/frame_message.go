package dto

// FrameMessage is pushed to dashboard viewers for every processed frame.
type FrameMessage struct {
	Session string `json:"session"`
	Source  string `json:"source"`
	Frame   int    `json:"frame"`
	Image   string `json:"image"` // base64 JPEG
	Summary string `json:"summary"`
}

// SessionInfo describes a running live session.
type SessionInfo struct {
	ID      string       `json:"id"`
	Source  string       `json:"source"`
	Started string       `json:"started"`
	Frames  int          `json:"frames"`
	Total   int          `json:"total"`
	Classes []ClassCount `json:"classes"` // Liczniki na żywo
}
