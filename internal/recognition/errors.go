package recognition

import "fmt"

// DecodeError reports an input that exists but cannot be turned into an image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RecognitionError reports a failure inside the engine itself.
type RecognitionError struct {
	Engine string
	Path   string
	Err    error
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("recognition with %s failed for %s: %v", e.Engine, e.Path, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }
