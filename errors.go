package libwebp

import (
	"errors"
)

// Errors returned by the decoder. Transcoding failures are wrapped in a *StageError.
var (
	ErrSourceRead          = errors.New("libwebp: source read error")
	ErrAllocation          = errors.New("libwebp: allocation error")
	ErrInvalidFormat       = errors.New("libwebp: invalid format")
	ErrDimensionOutOfRange = errors.New("libwebp: dimension out of range")
	ErrDecode              = errors.New("libwebp: decode error")
	ErrMemWrite            = errors.New("libwebp: mem write error")
	ErrMemRead             = errors.New("libwebp: mem read error")
	ErrPixelFormat         = errors.New("libwebp: unknown pixel format")
	ErrUnavailable         = errors.New("libwebp: no codec available")
)

// Stage names the step of a transcode that failed.
type Stage string

const (
	StageLoad   Stage = "load"
	StageHeader Stage = "header"
	StageAlloc  Stage = "alloc"
	StageDecode Stage = "decode"
	StageCopy   Stage = "copy"
)

// StageError records the operation, stage and source of a failed transcode.
type StageError struct {
	Op    string
	Stage Stage
	Path  string
	Err   error
}

func (e *StageError) Error() string {
	s := e.Op + " " + string(e.Stage)
	if e.Path != "" {
		s += " " + e.Path
	}

	return s + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
