package diploma

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Browser].
	ErrClosed = errors.New("diploma: browser is closed")

	// ErrReleased is returned when capturing a [Surface] after Release.
	ErrReleased = errors.New("diploma: surface is released")

	// ErrCancelled is returned when an export stops because its context was
	// cancelled. It is distinct from a failed export.
	ErrCancelled = errors.New("diploma: export cancelled")

	// ErrInvalidMode is returned for an unknown export [Mode].
	ErrInvalidMode = errors.New("diploma: invalid export mode")

	// ErrInvalidIndex is returned when a single export names a student
	// outside the roster.
	ErrInvalidIndex = errors.New("diploma: student index out of range")

	// ErrInvalidCapture is returned for a scale or quality out of range.
	ErrInvalidCapture = errors.New("diploma: invalid capture options")
)

// Stage names the pipeline step where an export failed.
type Stage string

// Pipeline stages.
const (
	StageRender   Stage = "render"
	StageMount    Stage = "mount"
	StageCapture  Stage = "capture"
	StageAssemble Stage = "assemble"
	StageFinalize Stage = "finalize"
)

// StageError reports the student and stage at which an export aborted.
// Index is -1 for stages that do not belong to a single student.
type StageError struct {
	Stage   Stage
	Index   int
	Student string
	Err     error
}

func (e *StageError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("diploma: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("diploma: %s student %d (%q): %v", e.Stage, e.Index+1, e.Student, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
