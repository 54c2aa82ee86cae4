package meshserver

import (
	"errors"

	"connectrpc.com/connect"

	meshv1 "github.com/yndnr/meshp2p-go/api/mesh/v1"
	"github.com/yndnr/meshp2p-go/internal/core/domain"
)

// knownErrors are the overlay errors that survive a hop unchanged.
var knownErrors = map[string]*domain.DomainError{}

// connectCodes maps overlay error codes to Connect codes.
var connectCodes = map[string]connect.Code{}

func init() {
	for _, e := range []struct {
		err  *domain.DomainError
		code connect.Code
	}{
		{domain.ErrNotFound, connect.CodeNotFound},
		{domain.ErrServiceNotFound, connect.CodeNotFound},
		{domain.ErrUnknownOperation, connect.CodeUnimplemented},
		{domain.ErrInvalidPeer, connect.CodeInvalidArgument},
		{domain.ErrInvalidAddress, connect.CodeInvalidArgument},
		{domain.ErrCorruptState, connect.CodeDataLoss},
		{domain.ErrRemoteOperation, connect.CodeInternal},
		{domain.ErrUnreachable, connect.CodeUnavailable},
		{domain.ErrStorage, connect.CodeInternal},
	} {
		knownErrors[e.err.Code] = e.err
		connectCodes[e.err.Code] = e.code
	}
}

// toConnectError converts err for the wire. Overlay errors keep their code
// in a header so the caller can rebuild them.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}

	var de *domain.DomainError
	if !errors.As(err, &de) {
		return connect.NewError(connect.CodeInternal, err)
	}

	code, ok := connectCodes[de.Code]
	if !ok {
		code = connect.CodeInternal
	}
	msg := de.Details
	if msg == "" {
		msg = de.Message
	}
	ce := connect.NewError(code, errors.New(msg))
	ce.Meta().Set(meshv1.ErrorCodeHeader, de.Code)
	return ce
}

// fromConnectError converts an error returned by a Connect call. Overlay
// errors are rebuilt from their code; transport failures become
// domain.ErrUnreachable; anything else is domain.ErrRemoteOperation.
func fromConnectError(err error) error {
	if err == nil {
		return nil
	}

	var ce *connect.Error
	if !errors.As(err, &ce) {
		return domain.ErrUnreachable.WithCause(err)
	}

	if known, ok := knownErrors[ce.Meta().Get(meshv1.ErrorCodeHeader)]; ok {
		if msg := ce.Message(); msg != known.Message {
			return known.WithDetails(msg)
		}
		return known
	}

	switch ce.Code() {
	case connect.CodeUnavailable, connect.CodeDeadlineExceeded, connect.CodeCanceled, connect.CodeUnknown:
		return domain.ErrUnreachable.WithCause(err)
	default:
		return domain.ErrRemoteOperation.WithCause(err)
	}
}
