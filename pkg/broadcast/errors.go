package broadcast

import "errors"

var (
	// ErrInvalidMsgType is returned by Transmit when the caller passes a
	// zero type_id. Zero is reserved for padding records.
	ErrInvalidMsgType = errors.New("broadcast: type_id must be non-zero")
	// ErrMsgTooLarge is returned by Transmit when payloadSize exceeds the
	// capacity/8 headroom cap.
	ErrMsgTooLarge = errors.New("broadcast: payload too large for ring")
	// ErrNoElement is returned by ReceiveNext when no new record has been
	// published since the receiver's cursor.
	ErrNoElement = errors.New("broadcast: no new element")
	// ErrOverwritten is returned by ReceiveNext when the receiver detected
	// that the transmitter lapped it; the cursor has been reset to latest.
	ErrOverwritten = errors.New("broadcast: overwritten by transmitter")
)
