package log

import "time"

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// LinkID identifies the binder or gateway that produced the event (UUID).
	LinkID string `cbor:"2,keyasint"`

	// Direction indicates frame flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// SenderID is the sender named in the security header, when known.
	SenderID uint16 `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address for network transports.
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Reject      *RejectEvent      `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming frame.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing frame.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the raw byte layer.
	LayerTransport Layer = 0
	// LayerSeal is the authentication layer.
	LayerSeal Layer = 1
	// LayerLink is the binder and mesh layer.
	LayerLink Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSeal:
		return "SEAL"
	case LayerLink:
		return "LINK"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a frame sent or accepted.
	CategoryFrame Category = 0
	// CategoryReject indicates a frame dropped by the sealing layer.
	CategoryReject Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryReject:
		return "REJECT"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures one sealed frame.
type FrameEvent struct {
	// Size is the sealed frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw sealed bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`

	// Nonce from the security header.
	Nonce uint32 `cbor:"4,keyasint"`

	// Records is the number of whole records in the payload.
	Records int `cbor:"5,keyasint"`

	// Index and Total from the application header, when present.
	Index uint16 `cbor:"6,keyasint,omitempty"`
	Total uint16 `cbor:"7,keyasint,omitempty"`
}

// RejectReason says why a frame was dropped.
type RejectReason uint8

const (
	// RejectMalformed indicates a frame shorter than the header or tag minimums.
	RejectMalformed RejectReason = 0
	// RejectAuthFailed indicates a tag mismatch.
	RejectAuthFailed RejectReason = 1
	// RejectReplayed indicates a duplicate (sender, nonce).
	RejectReplayed RejectReason = 2
)

// String returns the reason name.
func (r RejectReason) String() string {
	switch r {
	case RejectMalformed:
		return "MALFORMED"
	case RejectAuthFailed:
		return "AUTH_FAILED"
	case RejectReplayed:
		return "REPLAYED"
	default:
		return "UNKNOWN"
	}
}

// RejectEvent captures a frame dropped by the sealing layer.
type RejectEvent struct {
	// Reason for the rejection.
	Reason RejectReason `cbor:"1,keyasint"`

	// Size is the rejected frame size in bytes.
	Size int `cbor:"2,keyasint"`

	// Nonce from the (unverified) security header, if it could be parsed.
	Nonce uint32 `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures link lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLink indicates a binder or gateway state change.
	StateEntityLink StateEntity = 0
	// StateEntityNonce indicates a nonce reservation.
	StateEntityNonce StateEntity = 1
	// StateEntityReassembly indicates a reassembly buffer change.
	StateEntityReassembly StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLink:
		return "LINK"
	case StateEntityNonce:
		return "NONCE"
	case StateEntityReassembly:
		return "REASSEMBLY"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
