package domain

import "errors"

// DomainError is an overlay error carrying a stable code of the form
// MESH-<AREA>-<NNNN>. Two DomainErrors match under errors.Is when their
// codes are equal.
type DomainError struct {
	Code    string
	Message string
	Details string
	Cause   error
}

func (e *DomainError) Error() string {
	msg := "[" + e.Code + "] " + e.Message
	if e.Details == "" {
		return msg
	}
	return msg + ": " + e.Details
}

func (e *DomainError) Unwrap() error { return e.Cause }

func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// NewDomainError declares an error code.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// WithDetails returns a copy of e annotated with details.
func (e *DomainError) WithDetails(details string) *DomainError {
	c := *e
	c.Details = details
	return &c
}

// WithCause returns a copy of e wrapping cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	c := *e
	c.Cause = cause
	return &c
}

// IsDomainError reports whether err wraps a DomainError with the given
// code. An empty code matches any DomainError.
func IsDomainError(err error, code string) bool {
	c, ok := codeOf(err)
	return ok && (code == "" || c == code)
}

// GetErrorCode returns the code of the DomainError wrapped by err, or "".
func GetErrorCode(err error) string {
	c, _ := codeOf(err)
	return c
}

func codeOf(err error) (string, bool) {
	var de *DomainError
	if !errors.As(err, &de) {
		return "", false
	}
	return de.Code, true
}

// Overlay errors.
var (
	// ErrNotFound is the "no result" outcome of hash resolution and routing:
	// no participant exists, no route leads to it, or the next hop failed.
	ErrNotFound = NewDomainError("MESH-P2P-4040", "no reachable participant")

	// ErrUnknownOperation indicates a message named an operation the
	// destination service does not export.
	ErrUnknownOperation = NewDomainError("MESH-P2P-4041", "unknown operation")

	// ErrServiceNotFound indicates a lookup of a service id that has not
	// been created on this node.
	ErrServiceNotFound = NewDomainError("MESH-P2P-4042", "service not found")

	// ErrInvalidPeer indicates a peer proxy was requested without an
	// address or a key.
	ErrInvalidPeer = NewDomainError("MESH-P2P-4000", "peer needs an address or a key")

	// ErrInvalidAddress indicates an address that does not fit the map
	// geometry.
	ErrInvalidAddress = NewDomainError("MESH-P2P-4001", "invalid address")

	// ErrRemoteOperation indicates the delivered operation itself failed.
	ErrRemoteOperation = NewDomainError("MESH-P2P-5000", "remote operation failed")

	// ErrUnreachable indicates the transport could not reach a neighbour.
	ErrUnreachable = NewDomainError("MESH-P2P-5030", "neighbour unreachable")
)

// Storage errors.
var (
	// ErrStorage indicates a snapshot storage failure.
	ErrStorage = NewDomainError("MESH-SYS-5001", "storage error")

	// ErrCorruptState indicates an exported participant state could not be
	// decoded.
	ErrCorruptState = NewDomainError("MESH-SYS-4220", "corrupt participant state")
)
