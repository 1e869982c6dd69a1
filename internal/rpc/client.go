package rpc

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/state"
	"github.com/danielpatrickdp/action-kernel/internal/validator"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region types
// Session is the reply to OpenSession.
type Session struct {
	ID         string
	Resumed    bool
	Length     int
	State      state.GaugeState
	CanAdvance bool
}

// StepReply is the reply to Step.
type StepReply struct {
	Category   string
	Mutated    bool
	CanAdvance bool
	Entry      chain.Entry
}

// ReplayReply is the reply to Replay.
type ReplayReply struct {
	Success       bool
	Deterministic bool
	MatchesRecord bool
	Steps         int
	TraceDigest   string
	FinalState    state.GaugeState
	Recorded      state.GaugeState
}
// #endregion types

// #region client-struct
// Client calls a remote KernelService.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}
// #endregion client-struct

// #region constructor
// Dial connects to a KernelService at addr without TLS.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close is a no-op for it.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}
// #endregion constructor

// Close shuts down a connection created by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := newStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// #region calls
// ListMotions returns the server's catalog version and motions.
func (c *Client) ListMotions(ctx context.Context) (string, []catalog.Motion, error) {
	out, err := c.invoke(ctx, methodListMotions, map[string]any{})
	if err != nil {
		return "", nil, fmt.Errorf("list motions rpc: %w", err)
	}
	var motions []catalog.Motion
	for _, v := range listField(out, "motions") {
		m, err := motionFromStruct(v.GetStructValue())
		if err != nil {
			return "", nil, err
		}
		motions = append(motions, m)
	}
	return stringField(out, "version"), motions, nil
}

// OpenSession starts a session, or resumes sessionID when it is non-empty.
func (c *Client) OpenSession(ctx context.Context, sessionID string) (Session, error) {
	out, err := c.invoke(ctx, methodOpenSession, map[string]any{"session_id": sessionID})
	if err != nil {
		return Session{}, fmt.Errorf("open session rpc: %w", err)
	}
	return Session{
		ID:         stringField(out, "session_id"),
		Resumed:    boolField(out, "resumed"),
		Length:     int(numberField(out, "length")),
		State:      stateFromStruct(structField(out, "state")),
		CanAdvance: boolField(out, "can_advance"),
	}, nil
}

// CloseSession drops the session from server memory.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	if _, err := c.invoke(ctx, methodCloseSession, map[string]any{"session_id": sessionID}); err != nil {
		return fmt.Errorf("close session rpc: %w", err)
	}
	return nil
}

// Step applies motionID to the session.
func (c *Client) Step(ctx context.Context, sessionID, motionID string) (StepReply, error) {
	out, err := c.invoke(ctx, methodStep, map[string]any{"session_id": sessionID, "motion_id": motionID})
	if err != nil {
		return StepReply{}, fmt.Errorf("step rpc: %w", err)
	}
	e, err := entryFromStruct(structField(out, "entry"))
	if err != nil {
		return StepReply{}, fmt.Errorf("step reply: %w", err)
	}
	return StepReply{
		Category:   stringField(out, "category"),
		Mutated:    boolField(out, "mutated"),
		CanAdvance: boolField(out, "can_advance"),
		Entry:      e,
	}, nil
}

// ExportChain returns every entry of the session's chain.
func (c *Client) ExportChain(ctx context.Context, sessionID string) ([]chain.Entry, error) {
	out, err := c.invoke(ctx, methodExportChain, map[string]any{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("export chain rpc: %w", err)
	}
	values := listField(out, "entries")
	entries := make([]chain.Entry, 0, len(values))
	for _, v := range values {
		e, err := entryFromStruct(v.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("export reply: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// VerifyChain returns the server-side verification report.
func (c *Client) VerifyChain(ctx context.Context, sessionID string) (chain.Report, error) {
	out, err := c.invoke(ctx, methodVerifyChain, map[string]any{"session_id": sessionID})
	if err != nil {
		return chain.Report{}, fmt.Errorf("verify chain rpc: %w", err)
	}
	return reportFromStruct(out), nil
}

// Replay re-executes the session's chain server-side.
func (c *Client) Replay(ctx context.Context, sessionID string) (ReplayReply, error) {
	out, err := c.invoke(ctx, methodReplay, map[string]any{"session_id": sessionID})
	if err != nil {
		return ReplayReply{}, fmt.Errorf("replay rpc: %w", err)
	}
	return ReplayReply{
		Success:       boolField(out, "success"),
		Deterministic: boolField(out, "deterministic"),
		MatchesRecord: boolField(out, "matches_record"),
		Steps:         int(numberField(out, "steps")),
		TraceDigest:   stringField(out, "trace_digest"),
		FinalState:    stateFromStruct(structField(out, "final_state")),
		Recorded:      stateFromStruct(structField(out, "recorded")),
	}, nil
}

// Validate checks text against the server's narrative policy.
func (c *Client) Validate(ctx context.Context, text string) (validator.Result, error) {
	out, err := c.invoke(ctx, methodValidate, map[string]any{"text": text})
	if err != nil {
		return validator.Result{}, fmt.Errorf("validate rpc: %w", err)
	}
	return validationFromStruct(out), nil
}
// #endregion calls
