package rpc

import (
	"context"
	"errors"

	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/kernel"
	"github.com/danielpatrickdp/action-kernel/internal/ledger"
	"github.com/danielpatrickdp/action-kernel/internal/replay"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	errSessionNotFound = errors.New("session not found")
	errBadRequest      = errors.New("bad request")
)

// toStatus maps domain errors onto gRPC codes. Errors that already carry a
// status pass through.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var unknown *kernel.UnknownMotionError
	var tamper *chain.TamperError
	code := codes.Internal
	switch {
	case errors.As(err, &unknown), errors.Is(err, errBadRequest):
		code = codes.InvalidArgument
	case errors.Is(err, errSessionNotFound), errors.Is(err, ledger.ErrSessionNotFound):
		code = codes.NotFound
	case errors.Is(err, replay.ErrTampered), errors.As(err, &tamper):
		code = codes.DataLoss
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}
