package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danielpatrickdp/action-kernel/internal/catalog"
	"github.com/danielpatrickdp/action-kernel/internal/chain"
	"github.com/danielpatrickdp/action-kernel/internal/engine"
	"github.com/danielpatrickdp/action-kernel/internal/kernel"
	"github.com/danielpatrickdp/action-kernel/internal/ledger"
	"github.com/danielpatrickdp/action-kernel/internal/logging"
	"github.com/danielpatrickdp/action-kernel/internal/replay"
	"github.com/danielpatrickdp/action-kernel/internal/validator"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region session
// session pairs one kernel with its chain and the replayer built from the
// bundle the session was created under. mu serializes every call on the
// session; different sessions never contend. closed is set under mu once the
// session leaves the registry, so callers already queued on mu back off.
type session struct {
	mu       sync.Mutex
	id       string
	kernel   *kernel.Kernel
	chain    *chain.Chain
	replayer *replay.Replayer
	closed   bool
}
// #endregion session

// #region server-struct
// Server implements KernelService over an in-memory session registry, with
// optional write-through to a ledger store.
type Server struct {
	catalog   *catalog.Catalog
	coeff     engine.Coefficients
	replayer  *replay.Replayer
	validator *validator.Validator
	store     *ledger.Store
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// Option configures a Server.
type Option func(*Server)

// WithStore persists every session and entry to store.
func WithStore(store *ledger.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithLogger sets the server logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithValidator replaces the default narrative validator.
func WithValidator(v *validator.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// WithClock overrides the chain timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Server) { s.newID = newID }
}
// #endregion server-struct

// #region constructor
// NewServer validates the catalog and bundle and returns an empty registry.
func NewServer(cat *catalog.Catalog, coeff engine.Coefficients, opts ...Option) (*Server, error) {
	rep, err := replay.New(cat, coeff)
	if err != nil {
		return nil, err
	}
	s := &Server{
		catalog:   cat,
		coeff:     coeff,
		replayer:  rep,
		validator: validator.Default(),
		logger:    zap.NewNop(),
		newID:     func() string { return uuid.New().String() },
		now:       func() time.Time { return time.Now().UTC() },
		sessions:  make(map[string]*session),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}
// #endregion constructor

// #region registry
func (s *Server) lookup(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	return sess, nil
}

// evict drops sess from the registry. The caller holds sess.mu.
func (s *Server) evict(sess *session) {
	sess.closed = true
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[sess.id] == sess {
		delete(s.sessions, sess.id)
	}
}

// acquire locks sess, failing if it was evicted while the caller waited.
func acquire(sess *session) error {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return fmt.Errorf("%w: %s", errSessionNotFound, sess.id)
	}
	return nil
}

func (s *Server) create(ctx context.Context) (*session, error) {
	k, err := kernel.New(s.catalog, s.coeff)
	if err != nil {
		return nil, err
	}
	sess := &session{
		id:       s.newID(),
		kernel:   k,
		chain:    chain.New(chain.WithClock(s.now)),
		replayer: s.replayer,
	}
	if s.store != nil {
		if err := s.store.CreateSession(ctx, sess.id, s.catalog.Version(), s.coeff, s.now()); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess, nil
}

// resume rebuilds a session from the ledger under the bundle it was created
// with, which may differ from the server's current one.
func (s *Server) resume(ctx context.Context, id string) (*session, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", errSessionNotFound, id)
	}
	info, err := s.store.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	rep, err := replay.New(s.catalog, info.Coefficients)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", id, err)
	}
	entries, err := s.store.LoadChain(ctx, id)
	if err != nil {
		return nil, err
	}
	k, c, err := rep.Resume(entries, chain.WithClock(s.now))
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", id, err)
	}

	sess := &session{id: id, kernel: k, chain: c, replayer: rep}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = sess
	return sess, nil
}
// #endregion registry

// #region handlers
func requireSessionID(req *structpb.Struct) (string, error) {
	id := strings.TrimSpace(stringField(req, "session_id"))
	if id == "" {
		return "", fmt.Errorf("%w: session_id is required", errBadRequest)
	}
	return id, nil
}

func sessionReply(sess *session, resumed bool) map[string]any {
	return map[string]any{
		"session_id":  sess.id,
		"resumed":     resumed,
		"length":      float64(sess.chain.Len()),
		"state":       stateMap(sess.kernel.State()),
		"can_advance": sess.kernel.CanAdvance(),
	}
}

// ListMotions returns {version, motions: [{id, category, mutates_state, description}]}.
func (s *Server) ListMotions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	motions := s.catalog.Motions()
	list := make([]any, len(motions))
	for i, m := range motions {
		list[i] = motionMap(m)
	}
	return newStruct(map[string]any{"version": s.catalog.Version(), "motions": list})
}

// OpenSession creates a session, or resumes {session_id} from memory or the
// ledger. Replies {session_id, resumed, length, state, can_advance}.
func (s *Server) OpenSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := strings.TrimSpace(stringField(req, "session_id"))
	if id == "" {
		sess, err := s.create(ctx)
		if err != nil {
			return nil, toStatus(err)
		}
		s.logger.Info("session opened", zap.String("session", sess.id))
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return newStruct(sessionReply(sess, false))
	}

	sess, err := s.lookup(id)
	if err != nil {
		if sess, err = s.resume(ctx, id); err != nil {
			s.logger.Warn("session resume failed", zap.String("session", id), zap.Error(err))
			return nil, toStatus(err)
		}
		s.logger.Info("session resumed", zap.String("session", id), zap.Int("length", sess.chain.Len()))
	}
	if err := acquire(sess); err != nil {
		return nil, toStatus(err)
	}
	defer sess.mu.Unlock()
	return newStruct(sessionReply(sess, true))
}

// CloseSession drops {session_id} from memory. Persisted entries stay in the
// ledger. Replies {closed}.
func (s *Server) CloseSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireSessionID(req)
	if err != nil {
		return nil, toStatus(err)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := acquire(sess); err != nil {
		return nil, toStatus(err)
	}
	defer sess.mu.Unlock()
	s.evict(sess)
	return newStruct(map[string]any{"closed": true})
}

// Step applies {motion_id} to {session_id} and appends the result. Replies
// {session_id, category, mutated, can_advance, entry}.
func (s *Server) Step(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireSessionID(req)
	if err != nil {
		return nil, toStatus(err)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, toStatus(err)
	}
	reply, err := s.step(ctx, sess, stringField(req, "motion_id"))
	if err != nil {
		return nil, toStatus(err)
	}
	return newStruct(reply)
}

func (s *Server) step(ctx context.Context, sess *session, motionID string) (map[string]any, error) {
	if err := acquire(sess); err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	out, err := sess.kernel.Step(motionID)
	if err != nil {
		return nil, err
	}
	e := sess.chain.Append(motionID, out.State)
	if s.store != nil {
		if err := s.store.AppendEntries(ctx, sess.id, e); err != nil {
			// memory is now ahead of the ledger; the next OpenSession
			// rebuilds from the persisted prefix
			s.evict(sess)
			s.logger.Error("persist entry failed", append(logging.EntryFields(sess.id, e), zap.Error(err))...)
			return nil, err
		}
	}
	s.logger.Debug("step", logging.EntryFields(sess.id, e)...)

	return map[string]any{
		"session_id":  sess.id,
		"category":    out.Category.String(),
		"mutated":     out.Mutated,
		"can_advance": sess.kernel.CanAdvance(),
		"entry":       entryMap(e),
	}, nil
}

// ExportChain replies {session_id, entries}.
func (s *Server) ExportChain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireSessionID(req)
	if err != nil {
		return nil, toStatus(err)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, toStatus(err)
	}
	entries := sess.chain.Export()
	list := make([]any, len(entries))
	for i, e := range entries {
		list[i] = entryMap(e)
	}
	return newStruct(map[string]any{"session_id": id, "entries": list})
}

// VerifyChain replies with the verification report. An invalid chain is a
// successful call with valid=false.
func (s *Server) VerifyChain(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireSessionID(req)
	if err != nil {
		return nil, toStatus(err)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, toStatus(err)
	}
	rep := sess.chain.Verify()
	if !rep.Valid {
		s.logger.Warn("chain verification failed", append([]zap.Field{zap.String("session", id)}, logging.ReportFields(rep)...)...)
	}
	return newStruct(reportMap(rep))
}

// Replay re-executes the session's chain on a fresh kernel. Replies
// {success, deterministic, matches_record, steps, trace_digest, final_state, recorded}.
func (s *Server) Replay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requireSessionID(req)
	if err != nil {
		return nil, toStatus(err)
	}
	sess, err := s.lookup(id)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := acquire(sess); err != nil {
		return nil, toStatus(err)
	}
	defer sess.mu.Unlock()

	res, err := sess.replayer.ReplayFromChain(sess.chain)
	if err != nil {
		s.logger.Warn("replay refused", zap.String("session", id), zap.Error(err))
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{
		"success":        res.Success,
		"deterministic":  res.Deterministic,
		"matches_record": res.MatchesRecord,
		"steps":          float64(res.Steps),
		"trace_digest":   res.TraceDigest.Hex(),
		"final_state":    stateMap(res.FinalState),
		"recorded":       stateMap(res.Recorded),
	})
}

// Validate checks {text} against the narrative policy.
func (s *Server) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return newStruct(validationMap(s.validator.Validate(stringField(req, "text"))))
}
// #endregion handlers
