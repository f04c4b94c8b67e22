package form

import (
	"github.com/speedwagon-io/sensorform/internal/timeutil"
)

const (
	SuccessMessage = "Sensor data saved successfully!"
	ErrorMessage   = "An error occurred while saving sensor data."
)

type StatusKind int

const (
	StatusEmpty StatusKind = iota
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "empty"
	}
}

// Status is the transient message shown after a submission.
type Status struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

func (s Status) IsEmpty() bool {
	return s.Kind == StatusEmpty
}

// shownStatus is either empty (expiry nil) or showing with its own expiry
// timer. gen identifies which timer may clear it; it starts at 1.
type shownStatus struct {
	Status
	gen    uint64
	expiry timeutil.Timer
}

func (s *shownStatus) cancel() {
	if s.expiry != nil {
		s.expiry.Stop()
	}
	*s = shownStatus{}
}
