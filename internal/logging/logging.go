package logging

import (
	"fmt"

	"github.com/danielpatrickdp/action-kernel/internal/autotune"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// #region constructor
// New builds a zap logger. development switches to the console encoder with
// caller and stack traces on warnings.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
// #endregion constructor

// #region fields
// EntryFields describes one appended chain entry.
func EntryFields(sessionID string, e chain.Entry) []zap.Field {
	return []zap.Field{
		zap.String("session", sessionID),
		zap.Uint64("index", e.Index),
		zap.String("motion", e.MotionID),
		zap.Stringer("state_hash", e.StateHash),
		zap.Uint64("step_count", e.Snapshot.StepCount),
	}
}

// ReportFields describes a verification report.
func ReportFields(r chain.Report) []zap.Field {
	fields := []zap.Field{
		zap.Bool("valid", r.Valid),
		zap.Uint64("length", r.Length),
	}
	if !r.Valid {
		fields = append(fields,
			zap.Uint64("first_invalid", r.FirstInvalid),
			zap.Uint64s("errors", r.Errors),
		)
	}
	return fields
}

// ProposalFields describes a tuning proposal.
func ProposalFields(p autotune.Proposal) []zap.Field {
	return []zap.Field{
		zap.String("proposal", p.ID),
		zap.String("pattern", string(p.Pattern)),
		zap.Float64("confidence", p.Confidence),
		zap.Int("samples", p.SampleCount),
		zap.Bool("applied", p.Applied),
		zap.Bool("no_op", p.NoOp()),
	}
}
// #endregion fields
