package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cybercaution/cybercaution/internal/assessment"
)

// Manager owns the session lifecycle and reconciles three locations:
// in-memory state, the synchronous local mirror, and the remote row store.
// Local writes happen on every mutation; remote writes are debounced into a
// single pending upsert per session with at most one write in flight.
type Manager struct {
	remote RemoteStore
	local  LocalStore
	events EventSink
	log    *zap.Logger
	now    Clock
	user   string

	delay      time.Duration
	probeEvery time.Duration

	mu       sync.Mutex
	sessions map[string]*sessionState
	degraded bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type sessionState struct {
	sess    Session
	dirty   bool
	timer   *time.Timer
	writing bool // remote upsert in flight
	pending bool // mutation landed mid-write; newest state wins in one follow-up
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option           { return func(m *Manager) { m.log = l } }
func WithClock(c Clock) Option                  { return func(m *Manager) { m.now = c } }
func WithAutosaveDelay(d time.Duration) Option  { return func(m *Manager) { m.delay = d } }
func WithProbeInterval(d time.Duration) Option  { return func(m *Manager) { m.probeEvery = d } }
func WithEvents(e EventSink) Option             { return func(m *Manager) { m.events = e } }

// WithUser stamps new sessions with the local operator's user id.
func WithUser(userID string) Option { return func(m *Manager) { m.user = userID } }

func NewManager(remote RemoteStore, local LocalStore, opts ...Option) *Manager {
	m := &Manager{
		remote:     remote,
		local:      local,
		log:        zap.NewNop(),
		now:        time.Now,
		delay:      30 * time.Second,
		probeEvery: time.Minute,
		sessions:   map[string]*sessionState{},
		stop:       make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if m.probeEvery > 0 {
		m.wg.Add(1)
		go m.probeLoop()
	}
	return m
}

// CreateOrResume starts a new session or resumes an existing one. With an
// explicit id it tries the remote store first, then the local mirror; when
// both hold a copy the one with the later UpdatedAt wins. A double miss (or
// no id) yields a fresh session under a newly generated id.
func (m *Manager) CreateOrResume(ctx context.Context, explicitID, assessmentType string) (Session, error) {
	if explicitID != "" {
		m.mu.Lock()
		if st, ok := m.sessions[explicitID]; ok {
			out := st.sess.clone()
			m.mu.Unlock()
			return out, nil
		}
		m.mu.Unlock()

		if loaded, ok := m.loadLatest(ctx, explicitID); ok {
			if loaded.Status != StatusCompleted {
				loaded.Status = StatusResumed
			}
			m.track(loaded)
			m.audit(ctx, "session_resumed", loaded.SessionID, loaded)
			return loaded.clone(), nil
		}
	}

	if _, ok := assessment.Lookup(assessmentType); !ok {
		return Session{}, fmt.Errorf("unknown assessment type %q", assessmentType)
	}
	nowUnix := m.now().Unix()
	sess := Session{
		SessionID:      uuid.NewString(),
		UserID:         m.user,
		AssessmentType: assessmentType,
		Answers:        map[string]int{},
		Status:         StatusDraft,
		CreatedAt:      nowUnix,
		UpdatedAt:      nowUnix,
	}
	m.track(sess)
	m.saveLocal(sess)
	m.audit(ctx, "session_created", sess.SessionID, sess)
	return sess.clone(), nil
}

// Lookup returns a session by id without creating one: in-memory first, then
// remote/local with last-write-wins. Returns ErrNotFound on a full miss.
func (m *Manager) Lookup(ctx context.Context, id string) (Session, error) {
	m.mu.Lock()
	if st, ok := m.sessions[id]; ok {
		out := st.sess.clone()
		m.mu.Unlock()
		return out, nil
	}
	m.mu.Unlock()
	if loaded, ok := m.loadLatest(ctx, id); ok {
		return loaded, nil
	}
	return Session{}, ErrNotFound
}

// loadLatest fetches both copies of a session and picks the newer one.
// Remote errors other than a miss degrade silently to the local copy.
func (m *Manager) loadLatest(ctx context.Context, id string) (Session, bool) {
	var remote, local Session
	var haveRemote, haveLocal bool

	r, err := m.remote.Get(ctx, id)
	switch {
	case err == nil:
		remote, haveRemote = r, true
	case errors.Is(err, ErrNotFound):
	default:
		m.log.Warn("remote load failed, falling back to local", zap.String("session_id", id), zap.Error(err))
		m.setDegraded(ctx, true)
	}

	if l, err := m.local.Load(id); err == nil {
		local, haveLocal = l, true
	} else if !errors.Is(err, ErrNotFound) {
		m.log.Warn("local load failed", zap.String("session_id", id), zap.Error(err))
	}

	switch {
	case haveRemote && haveLocal:
		if local.UpdatedAt > remote.UpdatedAt {
			return local, true
		}
		return remote, true
	case haveRemote:
		return remote, true
	case haveLocal:
		return local, true
	}
	return Session{}, false
}

// ensure brings a session into memory, loading it from the stores if this
// process has not seen it yet.
func (m *Manager) ensure(ctx context.Context, id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return nil
	}
	loaded, found := m.loadLatest(ctx, id)
	if !found {
		return ErrNotFound
	}
	if loaded.Status != StatusCompleted {
		loaded.Status = StatusResumed
	}
	m.track(loaded)
	return nil
}

func (m *Manager) track(sess Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess.Answers == nil {
		sess.Answers = map[string]int{}
	}
	m.sessions[sess.SessionID] = &sessionState{sess: sess}
}

// RecordAnswer validates and stores one answer, recomputes the cached
// scores, mirrors to local storage and restarts the autosave timer.
func (m *Manager) RecordAnswer(ctx context.Context, id, questionID string, value int) error {
	return m.RecordAnswers(ctx, id, map[string]int{questionID: value})
}

// RecordAnswers applies a batch of answers atomically: every value is
// validated against the definition before any of them mutates the session.
func (m *Manager) RecordAnswers(ctx context.Context, id string, answers map[string]int) error {
	if err := m.ensure(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	def, ok := assessment.Lookup(st.sess.AssessmentType)
	if !ok {
		return fmt.Errorf("unknown assessment type %q", st.sess.AssessmentType)
	}
	sc := assessment.NewScorecardFrom(def, st.sess.Answers)
	for qid, v := range answers {
		if err := sc.Record(qid, v); err != nil {
			return err
		}
	}
	st.sess.Answers = sc.Answers()
	st.sess.CategoryScores = sc.CategoryScores()
	st.sess.OverallScore = sc.OverallScore()
	st.sess.RiskTier = string(sc.Tier())
	st.sess.UpdatedAt = m.now().Unix()
	m.saveLocalLocked(st.sess)
	m.markDirtyLocked(st)
	return nil
}

// SetOrganization updates the free-form org block.
func (m *Manager) SetOrganization(ctx context.Context, id string, org OrgMeta) error {
	if err := m.ensure(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	st.sess.Org = org
	st.sess.UpdatedAt = m.now().Unix()
	m.saveLocalLocked(st.sess)
	m.markDirtyLocked(st)
	return nil
}

// Advance runs the step gate. A blocked advance returns
// *assessment.IncompleteStepError and changes nothing. A successful advance
// persists immediately; completing the last step freezes the final scores
// and marks the session completed.
func (m *Manager) Advance(ctx context.Context, id string) (Session, error) {
	if err := m.ensure(ctx, id); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return Session{}, ErrNotFound
	}
	def, ok := assessment.Lookup(st.sess.AssessmentType)
	if !ok {
		m.mu.Unlock()
		return Session{}, fmt.Errorf("unknown assessment type %q", st.sess.AssessmentType)
	}
	gate := assessment.ResumeStepGate(def, st.sess.CurrentStep, st.sess.Status == StatusCompleted)
	sc := assessment.NewScorecardFrom(def, st.sess.Answers)
	if err := gate.Advance(sc); err != nil {
		m.mu.Unlock()
		return Session{}, err
	}
	st.sess.CurrentStep = gate.Current()
	st.sess.UpdatedAt = m.now().Unix()
	completed := gate.Completed() && st.sess.Status != StatusCompleted
	if gate.Completed() {
		st.sess.Status = StatusCompleted
		st.sess.CategoryScores = sc.CategoryScores()
		st.sess.OverallScore = sc.OverallScore()
		st.sess.RiskTier = string(sc.Tier())
	}
	m.saveLocalLocked(st.sess)
	out := st.sess.clone()
	m.mu.Unlock()

	if completed {
		m.audit(ctx, "session_completed", id, out)
	}
	// Explicit step submits persist immediately, bypassing the debounce.
	m.flush(ctx, id)
	return out, nil
}

// Retreat steps back without validation; answers are kept.
func (m *Manager) Retreat(ctx context.Context, id string) (Session, error) {
	if err := m.ensure(ctx, id); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return Session{}, ErrNotFound
	}
	if st.sess.CurrentStep > 0 {
		st.sess.CurrentStep--
	}
	st.sess.UpdatedAt = m.now().Unix()
	m.saveLocalLocked(st.sess)
	m.markDirtyLocked(st)
	out := st.sess.clone()
	m.mu.Unlock()
	return out, nil
}

// Flush forces an immediate persist of the session's current state.
func (m *Manager) Flush(ctx context.Context, id string) {
	m.flush(ctx, id)
}

// Degraded reports whether the last remote operation failed. Input is never
// blocked on this; it is a passive indicator only.
func (m *Manager) Degraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

// markDirtyLocked restarts the single debounce timer for the session.
// Rapid-fire mutations collapse into one pending remote write carrying the
// state as of the last mutation. Caller holds m.mu.
func (m *Manager) markDirtyLocked(st *sessionState) {
	st.dirty = true
	if st.timer != nil {
		st.timer.Stop()
	}
	id := st.sess.SessionID
	st.timer = time.AfterFunc(m.delay, func() {
		m.flush(context.Background(), id)
	})
}

// flush performs the remote upsert. If a write is already in flight the call
// records a pending follow-up instead of spawning a parallel write, so
// writes can never land out of order.
func (m *Manager) flush(ctx context.Context, id string) {
	m.mu.Lock()
	st, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if st.writing {
		st.pending = true
		m.mu.Unlock()
		return
	}
	st.writing = true
	st.dirty = false
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	snap := st.sess.clone()
	m.mu.Unlock()

	err := m.remote.Upsert(ctx, snap)

	m.mu.Lock()
	st.writing = false
	rerun := st.pending
	st.pending = false
	if err != nil {
		// Local copy stays authoritative until the remote recovers.
		st.dirty = true
	}
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("remote upsert failed, session degraded to local storage",
			zap.String("session_id", id), zap.Error(err))
		m.setDegraded(ctx, true)
		return
	}
	m.setDegraded(ctx, false)
	if rerun {
		m.flush(ctx, id)
	}
}

// saveLocal mirrors the session to local storage synchronously. Failures
// (quota, permissions) are logged and swallowed: the remote store is the
// durability backstop and user flow must not be interrupted.
func (m *Manager) saveLocal(sess Session) {
	if err := m.local.Save(sess); err != nil {
		m.log.Warn("local save failed", zap.String("session_id", sess.SessionID), zap.Error(err))
	}
}

func (m *Manager) saveLocalLocked(sess Session) {
	m.saveLocal(sess.clone())
}

func (m *Manager) setDegraded(ctx context.Context, v bool) {
	m.mu.Lock()
	changed := m.degraded != v
	m.degraded = v
	m.mu.Unlock()
	if !changed {
		return
	}
	if v {
		m.audit(ctx, "remote_degraded", "", nil)
	} else {
		m.log.Info("remote store recovered")
		m.audit(ctx, "remote_recovered", "", nil)
	}
}

// probeLoop retries a cheap remote read on a fixed interval while degraded
// and re-persists locally authoritative sessions once the remote recovers.
func (m *Manager) probeLoop() {
	defer m.wg.Done()
	t := time.NewTicker(m.probeEvery)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			if !m.Degraded() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := m.remote.Ping(ctx)
			cancel()
			if err != nil {
				continue
			}
			m.setDegraded(context.Background(), false)
			for _, id := range m.dirtySessionIDs() {
				m.flush(context.Background(), id)
			}
		}
	}
}

func (m *Manager) dirtySessionIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, st := range m.sessions {
		if st.dirty {
			ids = append(ids, id)
		}
	}
	return ids
}

func (m *Manager) audit(ctx context.Context, typ, key string, data any) {
	if m.events == nil {
		return
	}
	payload := "{}"
	if data != nil {
		if buf, err := json.Marshal(data); err == nil {
			payload = string(buf)
		}
	}
	if err := m.events.Append(ctx, typ, key, payload); err != nil {
		m.log.Warn("audit append failed", zap.String("type", typ), zap.Error(err))
	}
}

// Close stops the probe and all debounce timers, then flushes any session
// with unpersisted changes.
func (m *Manager) Close(ctx context.Context) {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()

	m.mu.Lock()
	var ids []string
	for id, st := range m.sessions {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		if st.dirty {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.flush(ctx, id)
	}
}
