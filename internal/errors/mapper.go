// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain errors. Wrap with fmt.Errorf("%w: ...") to add detail.
var (
	ErrNotFound          = errors.New("not found")
	ErrLikeLimitExceeded = errors.New("like limit exceeded")
	ErrInvalidArgument   = errors.New("invalid argument")

	// AI pipeline only. Never surfaced to the sender of the triggering message.
	ErrGenerationFailure = errors.New("reply generation failed")
	ErrGenerationTimeout = errors.New("reply generation timed out")
)

// LikeLimitReason is the user-facing explanation for ErrLikeLimitExceeded.
const LikeLimitReason = "you have reached your like limit, upgrade to premium for unlimited likes"

// Map converts repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrLikeLimitExceeded):
		return status.Error(codes.ResourceExhausted, LikeLimitReason)

	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// Reason returns a short client-facing message for a domain error.
// Used on the live channel where there is no status code.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrLikeLimitExceeded):
		return LikeLimitReason
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidArgument):
		return err.Error()
	default:
		return "internal error"
	}
}
