package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
)

var (
	ErrUnknownSession = errors.New("session: unknown session")
	ErrStopped        = errors.New("session: runtime stopped")
)

type JoinRequest struct {
	PlayerName string
	Resp       chan JoinResponse
}

type JoinResponse struct {
	SessionID string
	View      View
	Err       error
}

// Command runs Apply against one session on the runtime goroutine.
type Command struct {
	SessionID string
	Apply     func(s *Session) any
	Resp      chan CommandResult
}

type CommandResult struct {
	Value any
	Err   error
}

// Runtime owns every live session. All session state is touched only from
// the Run goroutine.
type Runtime struct {
	cfg    Config
	logger *log.Logger

	join  chan JoinRequest
	leave chan string
	inbox chan Command
	stop  chan struct{}
	done  chan struct{}

	stopOnce sync.Once

	sessions map[string]*Session
	live     atomic.Int64
	commands atomic.Uint64
}

// Metrics is safe to read from any goroutine.
type Metrics struct {
	Sessions   int64  `json:"sessions"`
	Commands   uint64 `json:"commands"`
	InboxDepth int    `json:"inbox_depth"`
	JoinDepth  int    `json:"join_depth"`
}

// NewRuntime keeps cfg as the template for new sessions.
func NewRuntime(cfg Config, logger *log.Logger) *Runtime {
	if logger == nil {
		logger = log.Default()
	}
	return &Runtime{
		cfg:      cfg,
		logger:   logger,
		join:     make(chan JoinRequest, 16),
		leave:    make(chan string),
		inbox:    make(chan Command, 256),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		sessions: map[string]*Session{},
	}
}

func (r *Runtime) Run(ctx context.Context) error {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stop:
			return nil
		case req := <-r.join:
			r.handleJoin(req)
		case id := <-r.leave:
			if _, ok := r.sessions[id]; ok {
				delete(r.sessions, id)
				r.live.Add(-1)
				r.logger.Printf("session %s closed", id)
			}
		case cmd := <-r.inbox:
			r.handleCommand(cmd)
		}
	}
}

// Stop ends Run. Calling it again is a no-op.
func (r *Runtime) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

func (r *Runtime) handleJoin(req JoinRequest) {
	cfg := r.cfg
	cfg.ID = ""
	cfg.PlayerName = req.PlayerName
	s, err := New(cfg)
	if err != nil {
		req.Resp <- JoinResponse{Err: err}
		return
	}
	r.sessions[s.ID()] = s
	r.live.Add(1)
	r.logger.Printf("session %s started for %q", s.ID(), req.PlayerName)
	req.Resp <- JoinResponse{SessionID: s.ID(), View: s.View()}
}

func (r *Runtime) handleCommand(cmd Command) {
	s := r.sessions[cmd.SessionID]
	if s == nil {
		cmd.Resp <- CommandResult{Err: ErrUnknownSession}
		return
	}
	r.commands.Add(1)
	cmd.Resp <- CommandResult{Value: cmd.Apply(s)}
}

func (r *Runtime) Metrics() Metrics {
	return Metrics{
		Sessions:   r.live.Load(),
		Commands:   r.commands.Load(),
		InboxDepth: len(r.inbox),
		JoinDepth:  len(r.join),
	}
}

func (r *Runtime) Join(ctx context.Context, playerName string) (JoinResponse, error) {
	resp := make(chan JoinResponse, 1)
	select {
	case r.join <- JoinRequest{PlayerName: playerName, Resp: resp}:
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	case <-r.done:
		return JoinResponse{}, ErrStopped
	}
	select {
	case out := <-resp:
		return out, out.Err
	case <-ctx.Done():
		return JoinResponse{}, ctx.Err()
	case <-r.done:
		return JoinResponse{}, ErrStopped
	}
}

func (r *Runtime) Leave(sessionID string) {
	select {
	case r.leave <- sessionID:
	case <-r.done:
	}
}

// Do runs fn on the runtime goroutine and returns its value.
func (r *Runtime) Do(ctx context.Context, sessionID string, fn func(s *Session) any) (any, error) {
	resp := make(chan CommandResult, 1)
	select {
	case r.inbox <- Command{SessionID: sessionID, Apply: fn, Resp: resp}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrStopped
	}
	select {
	case out := <-resp:
		return out.Value, out.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return nil, ErrStopped
	}
}
