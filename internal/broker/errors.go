package broker

import "errors"

// ErrNoQueuesAvailable is returned when no sample queue matches the
// requested task.
var ErrNoQueuesAvailable = errors.New("no sample queues available")

// ErrInsufficientData is returned when the combined length of every
// matching queue is below the requested batch size.
var ErrInsufficientData = errors.New("insufficient data available")
