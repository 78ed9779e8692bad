package execution

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqltui/internal/config"
	"github.com/leapstack-labs/sqltui/internal/history"
	"github.com/leapstack-labs/sqltui/internal/session"
	"github.com/leapstack-labs/sqltui/internal/sink"
	"github.com/leapstack-labs/sqltui/pkg/adapter"
)

// Opener returns a connected adapter for cfg.
type Opener func(ctx context.Context, cfg adapter.Config, logger *slog.Logger) (adapter.Adapter, error)

// Recorder stores the outcome of every execution.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder records every finished execution in r.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithOpener replaces the registry-backed adapter opener.
func WithOpener(open Opener) Option {
	return func(c *Coordinator) {
		if open != nil {
			c.open = open
		}
	}
}

// OpenAdapter builds an adapter from the registry and connects it.
func OpenAdapter(ctx context.Context, cfg adapter.Config, logger *slog.Logger) (adapter.Adapter, error) {
	a, err := adapter.NewAdapter(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// token identifies one execution. Only the token whose generation equals
// the coordinator's counter may post results. ctx ends only on Cancel.
type token struct {
	gen     uint64
	id      uuid.UUID
	tab     string
	session *session.Session
	ctx     context.Context
	cancel  context.CancelFunc
}

// job is everything a worker needs, captured on the UI loop.
type job struct {
	connKey     string
	profile     config.ConnectionProfile
	found       bool
	text        string
	resultsFile string
	batchSize   int
	messageTTL  time.Duration
}

type outcome struct {
	result  sink.Result
	headers []string
	rows    [][]string
	err     error
}

// Coordinator owns the global single-flight execution slot.
type Coordinator struct {
	cfg      session.ConfigSource
	sessions *session.Manager
	display  Display
	dispatch Dispatcher
	logger   *slog.Logger
	recorder Recorder
	open     Opener

	generation atomic.Uint64
	mu         sync.Mutex
	current    *token
	live       map[*token]struct{}
	// claims maps a results file to the generation of the newest run
	// writing it.
	claims map[string]uint64
	wg     sync.WaitGroup
}

// New creates a coordinator that reports to display through dispatch.
func New(cfg session.ConfigSource, sessions *session.Manager, display Display, dispatch Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		sessions: sessions,
		display:  display,
		dispatch: dispatch,
		logger:   slog.New(slog.DiscardHandler),
		open:     OpenAdapter,
		live:     make(map[*token]struct{}),
		claims:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts executing tab's query text against the selected connection.
// It must be called on the UI loop. A run already in flight, on any tab,
// is superseded: it keeps running to completion and writes its own results
// file, but nothing it produces reaches the session or the display.
func (c *Coordinator) Run(tab string) error {
	connKey, ok := c.display.SelectedConnection()
	if !ok {
		return ErrNoConnectionSelected
	}

	sess := c.sessions.Get(tab)
	if sess == nil {
		return fmt.Errorf("unknown tab %q", tab)
	}

	tok := c.issue(tab, sess)
	if err := sess.Begin(); err != nil {
		// issue abandons the superseded session, so this only happens if
		// the session was started outside the coordinator.
		c.logger.Warn("session already running", slog.String("tab", tab))
	}

	cfg := c.cfg.Current()
	profile, found := cfg.Connection(connKey)
	j := job{
		connKey:     connKey,
		profile:     profile,
		found:       found,
		text:        sess.Text(),
		resultsFile: cfg.ResultsFile(tab),
		batchSize:   cfg.BatchSize(),
		messageTTL:  cfg.MessageDuration(),
	}
	c.claim(tok, j.resultsFile)

	c.display.SetExecuteEnabled(tab, false)

	c.logger.Debug("starting execution",
		slog.String("tab", tab),
		slog.String("connection", connKey),
		slog.Uint64("generation", tok.gen),
		slog.String("id", tok.id.String()))

	c.wg.Add(1)
	go c.work(tok, j)
	return nil
}

// issue makes a new token current and retires the previous one.
func (c *Coordinator) issue(tab string, sess *session.Session) *token {
	ctx, cancel := context.WithCancel(context.Background())
	tok := &token{
		id:      uuid.New(),
		tab:     tab,
		session: sess,
		ctx:     ctx,
		cancel:  cancel,
	}

	c.mu.Lock()
	prev := c.current
	tok.gen = c.generation.Add(1)
	c.current = tok
	c.live[tok] = struct{}{}
	c.mu.Unlock()

	if prev != nil {
		c.logger.Debug("superseding execution",
			slog.String("tab", prev.tab),
			slog.Uint64("generation", prev.gen))
		prev.session.Abandon()
		if prev.tab != tab {
			c.display.SetExecuteEnabled(prev.tab, true)
		}
	}
	return tok
}

func (c *Coordinator) isCurrent(tok *token) bool {
	return c.generation.Load() == tok.gen
}

// claim records tok as the newest writer of path.
func (c *Coordinator) claim(tok *token, path string) {
	c.mu.Lock()
	c.claims[filepath.Clean(path)] = tok.gen
	c.mu.Unlock()
}

// owns reports whether no newer run has claimed path since tok.
func (c *Coordinator) owns(tok *token, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claims[filepath.Clean(path)] == tok.gen
}

// release forgets tok once its worker has returned.
func (c *Coordinator) release(tok *token) {
	tok.cancel()
	c.mu.Lock()
	delete(c.live, tok)
	c.mu.Unlock()
}

// post runs fn on the UI loop unless tok has been superseded by then.
func (c *Coordinator) post(tok *token, fn func()) {
	c.dispatch(func() {
		if !c.isCurrent(tok) {
			c.logger.Debug("dropping stale result",
				slog.String("tab", tok.tab),
				slog.Uint64("generation", tok.gen))
			return
		}
		fn()
	})
}

func (c *Coordinator) work(tok *token, j job) {
	defer c.wg.Done()
	defer c.release(tok)

	started := time.Now()
	out := c.safeExecute(tok, j)
	superseded := !c.isCurrent(tok)
	c.record(tok, j, out, started, superseded)

	if out.err == nil {
		c.logger.Info("execution succeeded",
			slog.String("tab", tok.tab),
			slog.Int64("rows", out.result.RowCount),
			slog.Bool("superseded", superseded),
			slog.Duration("elapsed", time.Since(started)))
	} else if !superseded {
		c.logger.Info("execution failed",
			slog.String("tab", tok.tab),
			slog.String("error", out.err.Error()))
	}

	// The session leaves Running in the same loop turn that re-enables
	// the execute action.
	c.post(tok, func() {
		if out.err == nil {
			tok.session.Succeed(out.result.Columns, out.result.RowCount)
			c.display.SetResultTable(tok.tab, out.headers, out.rows)
		} else {
			tok.session.Fail(reasonOf(out.err))
			c.display.ShowMessage(Describe(out.err), j.messageTTL)
		}
		c.display.SetExecuteEnabled(tok.tab, true)
		c.mu.Lock()
		if c.current == tok {
			c.current = nil
		}
		c.mu.Unlock()
	})
}

// safeExecute converts a worker panic into a failure.
func (c *Coordinator) safeExecute(tok *token, j job) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("execution panicked",
				slog.String("tab", tok.tab),
				slog.Any("panic", r))
			out = outcome{err: fmt.Errorf("internal error: %v", r)}
		}
	}()
	return c.execute(tok, j)
}

func (c *Coordinator) execute(tok *token, j job) outcome {
	if !j.found {
		return outcome{err: &adapter.DatabaseError{
			Op:  "resolve connection",
			Err: fmt.Errorf("connection %q is not configured", j.connKey),
		}}
	}

	db, err := c.open(tok.ctx, j.profile.AdapterConfig(), c.logger)
	if err != nil {
		return outcome{err: err}
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(tok.ctx, j.text)
	if err != nil {
		return outcome{err: err}
	}
	defer func() { _ = rows.Close() }()

	res, err := sink.Stream(tok.ctx, sink.NewSQLCursor(rows), j.resultsFile, j.batchSize,
		func() bool { return c.owns(tok, j.resultsFile) })
	if err != nil {
		return outcome{result: res, err: err}
	}

	headers, data, err := sink.ReadArtifact(res.Path)
	if err != nil {
		return outcome{result: res, err: err}
	}
	return outcome{result: res, headers: headers, rows: data}
}

func (c *Coordinator) record(tok *token, j job, out outcome, started time.Time, superseded bool) {
	if c.recorder == nil {
		return
	}
	e := history.Entry{
		ID:         tok.id.String(),
		Tab:        tok.tab,
		Connection: j.connKey,
		Query:      j.text,
		Status:     history.StatusSucceeded,
		RowCount:   out.result.RowCount,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	switch {
	case superseded:
		e.Status = history.StatusSuperseded
	case out.err != nil:
		e.Status = history.StatusFailed
		e.Error = reasonOf(out.err)
	}
	if err := c.recorder.Record(context.Background(), e); err != nil {
		c.logger.Warn("failed to record execution", slog.Any("error", err))
	}
}

// Cancel supersedes the current execution without starting a new one and
// cancels the context of every worker still running, superseded or not.
// It is meant for shutdown.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.generation.Add(1)
	for tok := range c.live {
		tok.cancel()
	}
	c.mu.Unlock()

	if prev != nil {
		prev.session.Abandon()
		c.display.SetExecuteEnabled(prev.tab, true)
	}
}

// Wait blocks until every worker has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Describe renders err as the message shown to the user.
func Describe(err error) string {
	if isIOError(err) {
		return "I/O error: " + reasonOf(err)
	}
	return "Database error: " + reasonOf(err)
}

// reasonOf returns the underlying failure text without the operation
// prefix added by the adapter and sink wrappers.
func reasonOf(err error) string {
	var we *sink.WriteError
	if errors.As(err, &we) {
		return we.Err.Error()
	}
	var dbe *adapter.DatabaseError
	if errors.As(err, &dbe) {
		return dbe.Err.Error()
	}
	return err.Error()
}

func isIOError(err error) bool {
	var we *sink.WriteError
	if errors.As(err, &we) {
		return true
	}
	var dbe *adapter.DatabaseError
	if errors.As(err, &dbe) {
		return false
	}
	var pe *fs.PathError
	return errors.As(err, &pe)
}
