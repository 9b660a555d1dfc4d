package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cybercaution/cybercaution/internal/assessment"
	"github.com/cybercaution/cybercaution/internal/session"
)

/* ---------------- In-memory fakes for the RemoteStore / LocalStore contracts ---------------- */

type fakeRemote struct {
	mu      sync.Mutex
	rows    map[string]session.Session
	upserts int
	failing bool
	block   chan struct{} // when set, Upsert waits on it before committing
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: map[string]session.Session{}}
}

func (f *fakeRemote) Upsert(_ context.Context, s session.Session) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("remote unreachable")
	}
	f.upserts++
	f.rows[s.SessionID] = s
	return nil
}

func (f *fakeRemote) Get(_ context.Context, id string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return session.Session{}, errors.New("remote unreachable")
	}
	s, ok := f.rows[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeRemote) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("remote unreachable")
	}
	return nil
}

func (f *fakeRemote) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upserts
}

func (f *fakeRemote) row(id string) (session.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	return s, ok
}

func (f *fakeRemote) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

type fakeLocal struct {
	mu      sync.Mutex
	rows    map[string]session.Session
	saveErr error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{rows: map[string]session.Session{}}
}

func (f *fakeLocal) Save(s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rows[s.SessionID] = s
	return nil
}

func (f *fakeLocal) Load(id string) (session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.rows[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

/* ------------------------------------------ Helpers ------------------------------------------ */

const testType = "manager-test"

func registerTestAssessment() {
	opts := []assessment.Option{
		{Value: 3, Label: "Yes"},
		{Value: 0, Label: "No"},
	}
	assessment.Register(&assessment.Definition{
		Type:  testType,
		Title: "Manager Test Assessment",
		Categories: []assessment.Category{
			{ID: "core", Name: "Core"},
		},
		Questions: []assessment.Question{
			{ID: "q1", CategoryID: "core", Prompt: "Q1?", Options: opts},
			{ID: "q2", CategoryID: "core", Prompt: "Q2?", Options: opts},
		},
		Steps: []assessment.Step{
			{Title: "Organization", Required: nil},
			{Title: "Questions", Required: []string{"q1", "q2"}},
		},
		Thresholds: assessment.RiskThresholds{Medium: 40, Good: 70},
	})
}

func newTestManager(remote session.RemoteStore, local session.LocalStore, opts ...session.Option) *session.Manager {
	registerTestAssessment()
	base := []session.Option{
		session.WithAutosaveDelay(25 * time.Millisecond),
		session.WithProbeInterval(0),
	}
	return session.NewManager(remote, local, append(base, opts...)...)
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

/* ------------------------------------------ Tests ------------------------------------------ */

func TestCreatePersistReload(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	local := newFakeLocal()

	m1 := newTestManager(remote, local)
	sess, err := m1.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.SessionID == "" || sess.Status != session.StatusDraft {
		t.Fatalf("unexpected new session: %+v", sess)
	}

	if err := m1.RecordAnswers(ctx, sess.SessionID, map[string]int{"q1": 3, "q2": 0}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := m1.Advance(ctx, sess.SessionID); err != nil { // org step, nothing required
		t.Fatalf("advance 1: %v", err)
	}
	done, err := m1.Advance(ctx, sess.SessionID)
	if err != nil {
		t.Fatalf("advance 2: %v", err)
	}
	if done.Status != session.StatusCompleted {
		t.Fatalf("expected completed, got %s", done.Status)
	}
	if done.OverallScore != 50 {
		t.Fatalf("expected overall 50, got %d", done.OverallScore)
	}
	m1.Close(ctx)

	// Fresh process: resume from the generated id only.
	m2 := newTestManager(remote, local)
	defer m2.Close(ctx)
	reloaded, err := m2.CreateOrResume(ctx, sess.SessionID, "")
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if reloaded.CurrentStep != done.CurrentStep {
		t.Fatalf("step mismatch: %d vs %d", reloaded.CurrentStep, done.CurrentStep)
	}
	if len(reloaded.Answers) != 2 || reloaded.Answers["q1"] != 3 || reloaded.Answers["q2"] != 0 {
		t.Fatalf("answers mismatch: %+v", reloaded.Answers)
	}
	if reloaded.Status != session.StatusCompleted {
		t.Fatalf("expected completed after reload, got %s", reloaded.Status)
	}
}

func TestDebounceCoalescing(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m := newTestManager(remote, newFakeLocal())
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}

	// Rapid-fire mutations inside one debounce window.
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 0); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 3); err != nil {
		t.Fatal(err)
	}
	if err := m.RecordAnswer(ctx, sess.SessionID, "q2", 3); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, "debounced write", func() bool { return remote.upsertCount() > 0 })
	time.Sleep(60 * time.Millisecond) // room for any stray extra write

	if got := remote.upsertCount(); got != 1 {
		t.Fatalf("expected exactly 1 remote write, got %d", got)
	}
	row, ok := remote.row(sess.SessionID)
	if !ok {
		t.Fatal("row missing")
	}
	if row.Answers["q1"] != 3 || row.Answers["q2"] != 3 {
		t.Fatalf("write must carry the state of the last mutation: %+v", row.Answers)
	}
}

func TestIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	m := newTestManager(remote, newFakeLocal())
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 3); err != nil {
		t.Fatal(err)
	}

	m.Flush(ctx, sess.SessionID)
	first, _ := remote.row(sess.SessionID)
	m.Flush(ctx, sess.SessionID)
	second, _ := remote.row(sess.SessionID)

	if len(remote.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(remote.rows))
	}
	if first.UpdatedAt != second.UpdatedAt || first.Answers["q1"] != second.Answers["q1"] ||
		first.CurrentStep != second.CurrentStep || first.Status != second.Status {
		t.Fatalf("replaying the same state drifted the row: %+v vs %+v", first, second)
	}
}

func TestResumePrecedence_NewerRemoteWins(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	local := newFakeLocal()

	remote.rows["s-1"] = session.Session{
		SessionID: "s-1", AssessmentType: testType,
		Answers: map[string]int{"q1": 3}, UpdatedAt: 200, CreatedAt: 100,
	}
	local.rows["s-1"] = session.Session{
		SessionID: "s-1", AssessmentType: testType,
		Answers: map[string]int{"q1": 0}, UpdatedAt: 100, CreatedAt: 100,
	}

	m := newTestManager(remote, local)
	defer m.Close(ctx)
	sess, err := m.CreateOrResume(ctx, "s-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Answers["q1"] != 3 {
		t.Fatalf("expected the newer remote snapshot, got %+v", sess.Answers)
	}
	if sess.Status != session.StatusResumed {
		t.Fatalf("expected resumed status, got %s", sess.Status)
	}
}

func TestResumePrecedence_NewerLocalWins(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	local := newFakeLocal()

	remote.rows["s-2"] = session.Session{
		SessionID: "s-2", AssessmentType: testType,
		Answers: map[string]int{"q1": 0}, UpdatedAt: 100, CreatedAt: 50,
	}
	local.rows["s-2"] = session.Session{
		SessionID: "s-2", AssessmentType: testType,
		Answers: map[string]int{"q1": 3}, UpdatedAt: 300, CreatedAt: 50,
	}

	m := newTestManager(remote, local)
	defer m.Close(ctx)
	sess, err := m.CreateOrResume(ctx, "s-2", "")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Answers["q1"] != 3 {
		t.Fatalf("expected the newer local snapshot, got %+v", sess.Answers)
	}
}

func TestRemoteFailureDegradesToLocal(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	local := newFakeLocal()
	m := newTestManager(remote, local, session.WithProbeInterval(15*time.Millisecond))
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}

	remote.setFailing(true)
	// Input is never blocked by remote trouble.
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 3); err != nil {
		t.Fatalf("mutation must not surface remote errors: %v", err)
	}
	m.Flush(ctx, sess.SessionID)

	if !m.Degraded() {
		t.Fatal("expected degraded after failed remote write")
	}
	if snap, err := local.Load(sess.SessionID); err != nil || snap.Answers["q1"] != 3 {
		t.Fatalf("local copy must stay authoritative: %+v err=%v", snap, err)
	}
	if _, ok := remote.row(sess.SessionID); ok {
		t.Fatal("remote should not have the row yet")
	}

	// Remote recovers: probe clears the flag and re-persists the session.
	remote.setFailing(false)
	waitFor(t, time.Second, "degraded flag cleared", func() bool { return !m.Degraded() })
	waitFor(t, time.Second, "session re-persisted", func() bool {
		row, ok := remote.row(sess.SessionID)
		return ok && row.Answers["q1"] == 3
	})
}

func TestInflightWriteCoalesces(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.block = make(chan struct{})
	m := newTestManager(remote, newFakeLocal())
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 0); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Flush(ctx, sess.SessionID) // parks inside the fake until unblocked
	}()
	time.Sleep(10 * time.Millisecond)

	// Mutations landing mid-write must coalesce into one follow-up, not a
	// parallel write.
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 3); err != nil {
		t.Fatal(err)
	}
	m.Flush(ctx, sess.SessionID)
	m.Flush(ctx, sess.SessionID)

	remote.mu.Lock()
	blocked := remote.block
	remote.block = nil // follow-up writes go straight through
	remote.mu.Unlock()
	close(blocked)

	wg.Wait()
	waitFor(t, time.Second, "follow-up write", func() bool {
		row, ok := remote.row(sess.SessionID)
		return ok && row.Answers["q1"] == 3
	})
	if got := remote.upsertCount(); got != 2 {
		t.Fatalf("expected blocked write + one coalesced follow-up, got %d", got)
	}
}

func TestBlockedAdvanceLeavesStepUnchanged(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(newFakeRemote(), newFakeLocal())
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Advance(ctx, sess.SessionID); err != nil { // org step
		t.Fatal(err)
	}
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 3); err != nil {
		t.Fatal(err)
	}

	_, err = m.Advance(ctx, sess.SessionID)
	if !errors.Is(err, assessment.ErrStepIncomplete) {
		t.Fatalf("expected step-incomplete, got %v", err)
	}
	var incomplete *assessment.IncompleteStepError
	if !errors.As(err, &incomplete) || len(incomplete.Missing) != 1 || incomplete.Missing[0] != "q2" {
		t.Fatalf("expected q2 reported missing, got %v", err)
	}
	cur, err := m.Lookup(ctx, sess.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if cur.CurrentStep != 1 || cur.Status == session.StatusCompleted {
		t.Fatalf("blocked advance mutated the session: %+v", cur)
	}

	// Answer the missing question and retry: exactly one step forward.
	if err := m.RecordAnswer(ctx, sess.SessionID, "q2", 0); err != nil {
		t.Fatal(err)
	}
	done, err := m.Advance(ctx, sess.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != session.StatusCompleted {
		t.Fatalf("expected completion, got %s", done.Status)
	}
}

func TestInvalidAnswerRejectedBeforeMutation(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	m := newTestManager(newFakeRemote(), local)
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}
	err = m.RecordAnswers(ctx, sess.SessionID, map[string]int{"q1": 3, "q2": 7})
	if !errors.Is(err, assessment.ErrInvalidAnswer) {
		t.Fatalf("expected invalid-answer, got %v", err)
	}
	cur, _ := m.Lookup(ctx, sess.SessionID)
	if len(cur.Answers) != 0 {
		t.Fatalf("rejected batch must not mutate state: %+v", cur.Answers)
	}
}

func TestLocalSaveErrorsSwallowed(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocal()
	m := newTestManager(newFakeRemote(), local)
	defer m.Close(ctx)

	sess, err := m.CreateOrResume(ctx, "", testType)
	if err != nil {
		t.Fatal(err)
	}
	local.mu.Lock()
	local.saveErr = errors.New("quota exceeded")
	local.mu.Unlock()

	// Storage-quota style failures are logged, never surfaced.
	if err := m.RecordAnswer(ctx, sess.SessionID, "q1", 3); err != nil {
		t.Fatalf("local save failure must be non-fatal: %v", err)
	}
}
