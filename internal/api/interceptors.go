package api

import (
	"context"
	"fmt"

	"holidayrent/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// grpcCode maps an error kind to a gRPC status code.
func grpcCode(err error) codes.Code {
	switch domain.Kind(err) {
	case domain.ErrNotFound:
		return codes.NotFound
	case domain.ErrForbidden:
		return codes.PermissionDenied
	case domain.ErrUnauthorized:
		return codes.Unauthenticated
	case domain.ErrConflict:
		return codes.AlreadyExists
	case domain.ErrCapacityExceeded, domain.ErrInvalidState:
		return codes.FailedPrecondition
	case domain.ErrInvalidRange, domain.ErrValidation:
		return codes.InvalidArgument
	default:
		return codes.Internal
	}
}

// ErrorUnaryInterceptor converts domain errors into gRPC statuses. Errors
// that already carry a status pass through.
func ErrorUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		code := grpcCode(err)
		if code == codes.Internal {
			return nil, status.Error(codes.Internal, "internal error")
		}
		return nil, status.Error(code, domain.Message(err))
	}
}

func RecoveryUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Str("method", info.FullMethod).Str("panic", fmt.Sprint(r)).Msg("grpc handler panicked")
				err = status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}
