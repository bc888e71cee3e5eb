package provider

import "fmt"

// Error is a clip generation failure for one segment.
type Error struct {
	Provider     string
	SegmentIndex int
	Err          error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s provider: segment %d: %v", e.Provider, e.SegmentIndex, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
