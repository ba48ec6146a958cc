package zeal

import "errors"

var (
	// ErrMessageTooLarge is returned when a message does not fit the buffer.
	ErrMessageTooLarge = errors.New("zeal: message too large")

	// ErrMissingData is returned when a raid or telemetry message has no
	// locatable data payload. It indicates a change in the pipe format.
	ErrMissingData = errors.New("zeal: data field not found")

	// ErrMalformed is returned for a message that cannot be decoded.
	ErrMalformed = errors.New("zeal: malformed message")

	// ErrListenerClosed is returned when a Listen session ends other than by
	// cancellation. A writer disconnect wraps io.EOF; a failed read wraps
	// the read error.
	ErrListenerClosed = errors.New("zeal: pipe closed")
)
