package pod

import "errors"

// Domain errors for the pod package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, pod.ErrPodNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPodNotFound is returned when a pod external ID does not exist.
	ErrPodNotFound = errors.New("pod: not found")

	// ErrInvalidPodID is returned when a pod external ID is empty.
	ErrInvalidPodID = errors.New("pod: invalid pod id")

	// ErrInvalidLimit is returned when a log query limit is negative.
	ErrInvalidLimit = errors.New("pod: invalid limit")
)
