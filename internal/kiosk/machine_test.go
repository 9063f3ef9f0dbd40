package kiosk

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
)

// stubResolver returns a fixed visitor or error and records the lookup
// arguments.
type stubResolver struct {
	visitor  model.Visitor
	err      error
	gotPhone string
	gotYear  int
}

func (r *stubResolver) ResolveByID(ctx context.Context, id uint64) (model.Visitor, error) {
	return r.visitor, r.err
}

func (r *stubResolver) ResolveByPhoneYear(ctx context.Context, phone string, year int) (model.Visitor, error) {
	r.gotPhone, r.gotYear = phone, year
	return r.visitor, r.err
}

// stubAPI is a scriptable CheckInAPI.  The block channels, when set,
// make the corresponding call wait so tests can race exits against
// in-flight requests.
type stubAPI struct {
	mu            sync.Mutex
	newPair       model.VisitorVisit
	newErr        error
	retPair       model.VisitorVisit
	retErr        error
	activePair    model.VisitorVisit
	activeErr     error
	checkOutErr   error
	blockNew      chan struct{}
	blockCheckOut chan struct{}
	checkOutCalls int
}

func (a *stubAPI) CheckInNew(ctx context.Context, payload NewVisitorPayload) (model.VisitorVisit, error) {
	if a.blockNew != nil {
		<-a.blockNew
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.newPair, a.newErr
}

func (a *stubAPI) CheckInReturning(ctx context.Context, visitorID uint64) (model.VisitorVisit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.retPair, a.retErr
}

func (a *stubAPI) ActiveVisit(ctx context.Context, visitorID uint64) (model.VisitorVisit, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activePair, a.activeErr
}

func (a *stubAPI) CheckOut(ctx context.Context, visitID uint64) error {
	if a.blockCheckOut != nil {
		<-a.blockCheckOut
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkOutCalls++
	return a.checkOutErr
}

// quietConfig keeps both timers far away so tests drive transitions
// explicitly.
func quietConfig() Config {
	return Config{
		IdleTimeout:     time.Hour,
		IdleDebounce:    0,
		RedirectSeconds: 1000,
		TickInterval:    time.Hour,
	}
}

func testPair(visitorID, visitID uint64, checkedInAt time.Time) model.VisitorVisit {
	return model.VisitorVisit{
		Visitor: model.Visitor{ID: visitorID, FirstName: "Ada", LastName: "Lovelace", Phone: "0812345678", YearOfBirth: 1990},
		Visit:   model.Visit{ID: visitID, VisitorID: visitorID, CheckedInAt: checkedInAt},
	}
}

func validDraft() Draft {
	return Draft{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		YearOfBirth: 1990,
		Sex:         "feminine",
		Phone:       "081-234-5678",
		Purpose:     "meeting",
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitNewVisitorSuccess(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC())}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{err: ErrNotFound}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := m.Phase(); got != PhaseCheckedIn {
		t.Fatalf("phase = %v, want %v", got, PhaseCheckedIn)
	}
	pair, conflict, ok := m.Result()
	if !ok || conflict {
		t.Fatalf("result: ok=%v conflict=%v, want ok=true conflict=false", ok, conflict)
	}
	if pair.Visitor.ID != 5 || pair.Visit.ID != 9 {
		t.Errorf("result pair = visitor %d visit %d, want 5/9", pair.Visitor.ID, pair.Visit.ID)
	}
	if id, ok, _ := store.CurrentVisitor(ctx); !ok || id != 5 {
		t.Errorf("stored visitor = %d ok=%v, want 5", id, ok)
	}
}

func TestSubmitNewVisitorDuplicateShowsOriginalVisit(t *testing.T) {
	ctx := context.Background()
	// The visitor checked in at 09:00; a later duplicate attempt must
	// surface that visit, not mint a new one.
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	api := &stubAPI{newErr: ErrDuplicateVisit, newPair: testPair(5, 9, nine)}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := m.Phase(); got != PhaseDuplicateConflict {
		t.Fatalf("phase = %v, want %v", got, PhaseDuplicateConflict)
	}
	pair, conflict, ok := m.Result()
	if !ok || !conflict {
		t.Fatalf("result: ok=%v conflict=%v, want ok=true conflict=true", ok, conflict)
	}
	if !pair.Visit.CheckedInAt.Equal(nine) {
		t.Errorf("conflict visit checked in at %v, want %v", pair.Visit.CheckedInAt, nine)
	}
	// The conflict view still represents a live session: the visitor ID
	// is stored for resume.
	if id, ok, _ := store.CurrentVisitor(ctx); !ok || id != 5 {
		t.Errorf("stored visitor = %d ok=%v, want 5", id, ok)
	}
}

func TestSubmitNewVisitorFailureKeepsForm(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	api := &stubAPI{newErr: boom}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != boom {
		t.Fatalf("submit err = %v, want %v", err, boom)
	}
	if got := m.Phase(); got != PhaseNewVisitorForm {
		t.Errorf("phase = %v, want %v (retry affordance)", got, PhaseNewVisitorForm)
	}
	if m.LastErr() != boom {
		t.Errorf("LastErr = %v, want %v", m.LastErr(), boom)
	}
	if _, ok, _ := store.CurrentVisitor(ctx); ok {
		t.Error("failed submit stored a visitor ID")
	}
}

func TestSubmitNewVisitorWrongPhase(t *testing.T) {
	m := NewMachine(quietConfig(), &stubResolver{}, &stubAPI{}, NewMemorySessionStore(), nil)
	// Still on type selection; no form is shown.
	if err := m.SubmitNewVisitor(context.Background(), validDraft()); err != ErrInvalidTransition {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestLookupReturningMissPrefillsForm(t *testing.T) {
	ctx := context.Background()
	resolver := &stubResolver{err: ErrNotFound}
	m := NewMachine(quietConfig(), resolver, &stubAPI{}, NewMemorySessionStore(), nil)

	if err := m.Start(ctx, EntryDirective{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.LookupReturning(ctx, "081-234-5678", 1990); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := m.Phase(); got != PhaseNewVisitorForm {
		t.Fatalf("phase = %v, want %v", got, PhaseNewVisitorForm)
	}
	if resolver.gotPhone != "0812345678" || resolver.gotYear != 1990 {
		t.Errorf("resolver got %q/%d, want normalized 0812345678/1990", resolver.gotPhone, resolver.gotYear)
	}
	// The entered identity carries into the manual form.
	p := m.Prefill()
	if p.Phone != "0812345678" || p.YearOfBirth != 1990 {
		t.Fatalf("prefill = %+v, want 0812345678/1990", p)
	}
	d := DraftFromPrefill(p)
	if d.Phone != "0812345678" || d.YearOfBirth != 1990 {
		t.Errorf("draft from prefill = %q/%d, want 0812345678/1990", d.Phone, d.YearOfBirth)
	}
}

func TestLookupReturningHitChecksInDirectly(t *testing.T) {
	ctx := context.Background()
	resolver := &stubResolver{visitor: model.Visitor{ID: 42}}
	api := &stubAPI{retPair: testPair(42, 7, time.Now().UTC())}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), resolver, api, store, nil)

	if err := m.Start(ctx, EntryDirective{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.LookupReturning(ctx, "0812345678", 1990); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := m.Phase(); got != PhaseCheckedIn {
		t.Fatalf("phase = %v, want %v (lookup hit skips the form)", got, PhaseCheckedIn)
	}
	if id, ok, _ := store.CurrentVisitor(ctx); !ok || id != 42 {
		t.Errorf("stored visitor = %d ok=%v, want 42", id, ok)
	}
}

func TestReturningDirectiveDuplicateConflict(t *testing.T) {
	ctx := context.Background()
	nine := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	api := &stubAPI{retErr: ErrDuplicateVisit, retPair: testPair(42, 7, nine)}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{ReturningID: 42}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := m.Phase(); got != PhaseDuplicateConflict {
		t.Fatalf("phase = %v, want %v", got, PhaseDuplicateConflict)
	}
	pair, conflict, ok := m.Result()
	if !ok || !conflict {
		t.Fatalf("result: ok=%v conflict=%v, want conflict pair", ok, conflict)
	}
	if !pair.Visit.CheckedInAt.Equal(nine) {
		t.Errorf("conflict shows check-in at %v, want the original %v", pair.Visit.CheckedInAt, nine)
	}
}

func TestReturningTransientFailureFallsBackToForm(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{retErr: errors.New("http 500")}
	m := NewMachine(quietConfig(), &stubResolver{}, api, NewMemorySessionStore(), nil)

	if err := m.Start(ctx, EntryDirective{ReturningID: 42}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := m.Phase(); got != PhaseLookupFailed {
		t.Fatalf("phase = %v, want %v", got, PhaseLookupFailed)
	}
	if m.LastErr() == nil {
		t.Error("LastErr is nil after a failed automatic check-in")
	}

	// The fallback form is fully functional.
	api.mu.Lock()
	api.newPair = testPair(42, 8, time.Now().UTC())
	api.mu.Unlock()
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit from fallback: %v", err)
	}
	if got := m.Phase(); got != PhaseCheckedIn {
		t.Errorf("phase = %v, want %v", got, PhaseCheckedIn)
	}
}

func TestMalformedConflictBodyIsFatal(t *testing.T) {
	ctx := context.Background()
	exited := make(chan ExitReason, 1)
	// Conflict without a usable pair: fatal for the attempt.
	api := &stubAPI{retErr: ErrDuplicateVisit}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, func(r ExitReason) { exited <- r })

	if err := m.Start(ctx, EntryDirective{ReturningID: 42}); err != ErrMalformedResponse {
		t.Fatalf("start err = %v, want ErrMalformedResponse", err)
	}
	if got := m.Phase(); got != PhaseExit {
		t.Fatalf("phase = %v, want %v", got, PhaseExit)
	}
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("onExit never ran")
	}
}

func TestParseEntryPrecedenceAndConsumption(t *testing.T) {
	q := url.Values{}
	q.Set("returning_id", "42")
	q.Set("prefill_phone", "0812345678")
	q.Set("prefill_year", "1990")
	q.Set("new_visitor", "1")

	d := ParseEntry(q)
	if d.ReturningID != 42 {
		t.Errorf("ReturningID = %d, want 42", d.ReturningID)
	}
	if d.NewVisitor || d.PrefillPhone != "" || d.PrefillYear != 0 {
		t.Errorf("lower-precedence directives leaked: %+v", d)
	}
	// Directives are consumed: a reload must not replay them.
	for _, k := range []string{"returning_id", "prefill_phone", "prefill_year", "new_visitor"} {
		if q.Get(k) != "" {
			t.Errorf("directive key %q survived ParseEntry", k)
		}
	}

	q = url.Values{}
	q.Set("prefill_phone", "0812345678")
	q.Set("new_visitor", "1")
	d = ParseEntry(q)
	if d.PrefillPhone != "0812345678" || d.NewVisitor {
		t.Errorf("prefill should outrank new_visitor: %+v", d)
	}
}

func TestResumeActiveVisitAfterReload(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{activePair: testPair(42, 7, time.Now().UTC())}
	store := NewMemorySessionStore()
	_ = store.SetCurrentVisitor(ctx, 42)
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := m.Phase(); got != PhaseCheckedIn {
		t.Fatalf("phase = %v, want %v (resumed session)", got, PhaseCheckedIn)
	}
	pair, conflict, ok := m.Result()
	if !ok || conflict || pair.Visit.ID != 7 {
		t.Errorf("result = %+v conflict=%v ok=%v, want visit 7", pair, conflict, ok)
	}
}

func TestResumeStaleStoredIDFallsThrough(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{activeErr: ErrNotFound}
	store := NewMemorySessionStore()
	_ = store.SetCurrentVisitor(ctx, 42)
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := m.Phase(); got != PhaseSelectingType {
		t.Fatalf("phase = %v, want %v", got, PhaseSelectingType)
	}
	if _, ok, _ := store.CurrentVisitor(ctx); ok {
		t.Error("stale stored ID was not cleared")
	}
}

func TestRedirectCountdownExitsAndKeepsStoredID(t *testing.T) {
	ctx := context.Background()
	cfg := quietConfig()
	cfg.RedirectSeconds = 1
	cfg.TickInterval = 5 * time.Millisecond
	exited := make(chan ExitReason, 1)
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC())}
	store := NewMemorySessionStore()
	m := NewMachine(cfg, &stubResolver{}, api, store, func(r ExitReason) { exited <- r })

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case reason := <-exited:
		if reason != ExitRedirect {
			t.Fatalf("exit reason = %v, want %v", reason, ExitRedirect)
		}
	case <-time.After(time.Second):
		t.Fatal("countdown never triggered the exit")
	}
	// The visit is still open; a reload should resume it.
	if id, ok, _ := store.CurrentVisitor(ctx); !ok || id != 5 {
		t.Errorf("stored visitor after redirect = %d ok=%v, want 5 (kept)", id, ok)
	}
}

func TestCancelRedirectIsIdempotentAndKeepsIdleTimer(t *testing.T) {
	ctx := context.Background()
	cfg := quietConfig()
	cfg.IdleTimeout = 50 * time.Millisecond
	exited := make(chan ExitReason, 1)
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC())}
	store := NewMemorySessionStore()
	m := NewMachine(cfg, &stubResolver{}, api, store, func(r ExitReason) { exited <- r })

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	m.CancelRedirect()
	m.CancelRedirect() // idempotent
	if got := m.Phase(); got != PhaseCheckedIn {
		t.Fatalf("phase after cancel = %v, want %v", got, PhaseCheckedIn)
	}

	// The idle timer is independent of the countdown: with the redirect
	// cancelled, inactivity still ends the session.
	select {
	case reason := <-exited:
		if reason != ExitIdle {
			t.Fatalf("exit reason = %v, want %v", reason, ExitIdle)
		}
	case <-time.After(time.Second):
		t.Fatal("idle timer never fired after CancelRedirect")
	}
	// Idle exit clears the durable ID.
	waitFor(t, "store cleared", func() bool {
		_, ok, _ := store.CurrentVisitor(ctx)
		return !ok
	})
}

func TestStaleResultDiscardedAfterExit(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC()), blockNew: make(chan struct{})}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- m.SubmitNewVisitor(ctx, validDraft()) }()
	waitFor(t, "submission in flight", func() bool { return m.Phase() == PhaseSubmitting })

	// The session ends while the request is still in flight.
	m.ReturnHome()
	close(api.blockNew)

	if err := <-errCh; err != nil {
		t.Fatalf("stale submit returned error: %v", err)
	}
	if got := m.Phase(); got != PhaseExit {
		t.Errorf("phase = %v, want %v (stale result must not revive the session)", got, PhaseExit)
	}
	if _, _, ok := m.Result(); ok {
		t.Error("stale result was stored")
	}
	if _, ok, _ := store.CurrentVisitor(ctx); ok {
		t.Error("stale result wrote the durable visitor ID")
	}
}

func TestCheckOutClearsStoreAndExits(t *testing.T) {
	ctx := context.Background()
	exited := make(chan ExitReason, 1)
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC())}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, func(r ExitReason) { exited <- r })

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.CheckOut(ctx); err != nil {
		t.Fatalf("check out: %v", err)
	}
	if api.checkOutCalls != 1 {
		t.Errorf("checkOut calls = %d, want 1", api.checkOutCalls)
	}
	select {
	case reason := <-exited:
		if reason != ExitCheckout {
			t.Fatalf("exit reason = %v, want %v", reason, ExitCheckout)
		}
	case <-time.After(time.Second):
		t.Fatal("onExit never ran")
	}
	if _, ok, _ := store.CurrentVisitor(ctx); ok {
		t.Error("checkout left the durable visitor ID behind")
	}
}

func TestCheckOutFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC()), checkOutErr: boom}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{}, api, store, nil)

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := m.CheckOut(ctx); err != boom {
		t.Fatalf("check out err = %v, want %v", err, boom)
	}
	if got := m.Phase(); got != PhaseCheckedIn {
		t.Errorf("phase = %v, want %v (retryable)", got, PhaseCheckedIn)
	}
	if id, ok, _ := store.CurrentVisitor(ctx); !ok || id != 5 {
		t.Errorf("stored visitor = %d ok=%v, want 5 (kept on failure)", id, ok)
	}
}

func TestCheckOutDoubleTapIsBusy(t *testing.T) {
	ctx := context.Background()
	api := &stubAPI{newPair: testPair(5, 9, time.Now().UTC()), blockCheckOut: make(chan struct{})}
	m := NewMachine(quietConfig(), &stubResolver{}, api, NewMemorySessionStore(), nil)

	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.SubmitNewVisitor(ctx, validDraft()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- m.CheckOut(ctx) }()
	waitFor(t, "first checkout in flight", func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.inFlight
	})

	if err := m.CheckOut(ctx); err != ErrBusy {
		t.Fatalf("second checkout err = %v, want ErrBusy", err)
	}
	close(api.blockCheckOut)
	if err := <-done; err != nil {
		t.Fatalf("first checkout: %v", err)
	}
	if api.checkOutCalls != 1 {
		t.Errorf("checkOut calls = %d, want 1 (double tap collapsed)", api.checkOutCalls)
	}
}

func TestChooseNewVisitorOnlyFromTypeSelection(t *testing.T) {
	m := NewMachine(quietConfig(), &stubResolver{}, &stubAPI{}, NewMemorySessionStore(), nil)
	if err := m.ChooseNewVisitor(); err != nil {
		t.Fatalf("choose from type selection: %v", err)
	}
	if got := m.Phase(); got != PhaseNewVisitorForm {
		t.Fatalf("phase = %v, want %v", got, PhaseNewVisitorForm)
	}
	if err := m.ChooseNewVisitor(); err != ErrInvalidTransition {
		t.Errorf("choose from form: err = %v, want ErrInvalidTransition", err)
	}
}

func TestLateResultAfterExitIsDropped(t *testing.T) {
	// Covers the window between a submit's generation check and the
	// terminal transition: when an exit lands there, the pending result
	// must be discarded, not applied on top of the ended session.
	ctx := context.Background()
	api := &stubAPI{}
	store := NewMemorySessionStore()
	m := NewMachine(quietConfig(), &stubResolver{err: ErrNotFound}, api, store, nil)
	if err := m.Start(ctx, EntryDirective{NewVisitor: true}); err != nil {
		t.Fatalf("start: %v", err)
	}

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	m.ReturnHome()

	m.enterTerminal(ctx, gen, testPair(5, 9, time.Now().UTC()), false)

	if got := m.Phase(); got != PhaseExit {
		t.Fatalf("phase = %s, want %s after the session ended", got, PhaseExit)
	}
	if _, _, ok := m.Result(); ok {
		t.Error("late result was stored after the session ended")
	}
	if _, ok, _ := store.CurrentVisitor(ctx); ok {
		t.Error("late result wrote the durable visitor id after the session ended")
	}
}
