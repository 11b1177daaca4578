package grpcserver

import (
	"errors"

	"github.com/and161185/tunehub/internal/errs"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors to gRPC status. Internal details are logged,
// never returned to the caller.
func toStatus(log *zap.Logger, op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "rate limited")
	case errors.Is(err, errs.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, "bad credentials")
	case errors.Is(err, errs.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrUnavailable):
		log.Warn(op+" unavailable", zap.Error(err))
		return status.Error(codes.Unavailable, "temporarily unavailable")
	default:
		log.Error(op+" failed", zap.Error(err))
		return status.Error(codes.Internal, "internal")
	}
}
