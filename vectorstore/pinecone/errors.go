package pinecone

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/poiesic/vectorseed/vectorstore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mapError wraps a Pinecone error with the matching vectorstore sentinel.
// Control plane calls fail with *pinecone.PineconeError carrying the HTTP
// status; data plane calls fail with gRPC status errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pe *pinecone.PineconeError
	if errors.As(err, &pe) {
		if sentinel := fromHTTPStatus(pe.Code); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
		return err
	}

	if st, ok := status.FromError(err); ok {
		if sentinel := fromGRPCCode(st.Code()); sentinel != nil {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", vectorstore.ErrUnavailable, err)
	}
	return err
}

func fromHTTPStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return vectorstore.ErrIndexNotFound
	case code == http.StatusConflict, code == http.StatusForbidden, code == http.StatusPreconditionFailed:
		return vectorstore.ErrConflict
	case code == http.StatusUnauthorized:
		return vectorstore.ErrUnauthorized
	case code == http.StatusTooManyRequests, code >= 500:
		return vectorstore.ErrUnavailable
	case code >= 400:
		return vectorstore.ErrInvalidRequest
	}
	return nil
}

func fromGRPCCode(code codes.Code) error {
	switch code {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
		return vectorstore.ErrUnavailable
	case codes.NotFound:
		return vectorstore.ErrIndexNotFound
	case codes.InvalidArgument, codes.OutOfRange:
		return vectorstore.ErrInvalidRequest
	case codes.AlreadyExists, codes.FailedPrecondition:
		return vectorstore.ErrConflict
	case codes.Unauthenticated, codes.PermissionDenied:
		return vectorstore.ErrUnauthorized
	}
	return nil
}
