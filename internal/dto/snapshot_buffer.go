package dto

// BufferedSnapshot holds an annotated frame waiting to be flushed to disk.
type BufferedSnapshot struct {
	Session string
	Frame   int
	Labels  []string
	Data    []byte
}
