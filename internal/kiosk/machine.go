package kiosk

import (
	"context"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
	"github.com/openvisit/visitor-portal/internal/utils"
)

// Phase is the machine's current position in the check-in flow.
type Phase string

const (
	PhaseSelectingType     Phase = "SELECTING_TYPE"     // binary new/returning choice
	PhaseNewVisitorForm    Phase = "NEW_VISITOR_FORM"   // multi-step registration form
	PhaseReturningLookup   Phase = "RETURNING_LOOKUP"   // resolver query in progress
	PhaseSubmitting        Phase = "SUBMITTING"         // check-in call in flight
	PhaseCheckedIn         Phase = "CHECKED_IN"         // fresh visit created
	PhaseDuplicateConflict Phase = "DUPLICATE_CONFLICT" // visitor was already checked in
	PhaseLookupFailed      Phase = "LOOKUP_FAILED"      // returning path failed; manual form shown
	PhaseExit              Phase = "EXIT"               // flow over, navigate to welcome screen
)

// ExitReason distinguishes how the machine reached PhaseExit.  Idle
// exits and checkout clear the durable visitor ID; the post-check-in
// countdown and the manual return-home action keep it, because that
// visitor still has an active visit worth resuming after a reload.
type ExitReason string

const (
	ExitIdle     ExitReason = "IDLE_TIMEOUT"
	ExitRedirect ExitReason = "AUTO_REDIRECT"
	ExitCheckout ExitReason = "CHECKOUT"
	ExitManual   ExitReason = "MANUAL"
)

// Resolver looks up returning visitors.  Implementations must return
// ErrNotFound for a miss; the machine treats transport failures the
// same way, so implementations may also fold them into ErrNotFound.
type Resolver interface {
	ResolveByID(ctx context.Context, id uint64) (model.Visitor, error)
	ResolveByPhoneYear(ctx context.Context, phone string, year int) (model.Visitor, error)
}

// CheckInAPI is the backend surface the machine drives.  CheckInNew and
// CheckInReturning must return the existing visitor/visit pair together
// with ErrDuplicateVisit on a duplicate check-in.
type CheckInAPI interface {
	CheckInNew(ctx context.Context, payload NewVisitorPayload) (model.VisitorVisit, error)
	CheckInReturning(ctx context.Context, visitorID uint64) (model.VisitorVisit, error)
	ActiveVisit(ctx context.Context, visitorID uint64) (model.VisitorVisit, error)
	CheckOut(ctx context.Context, visitID uint64) error
}

// NewVisitorPayload is the request body of POST /api/visitors/check-in,
// produced from a Draft by its transform step.
type NewVisitorPayload struct {
	FirstName   string `json:"first_name"`
	MiddleName  string `json:"middle_name,omitempty"`
	LastName    string `json:"last_name"`
	YearOfBirth int    `json:"year_of_birth"`
	Sex         string `json:"sex"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	Purpose     string `json:"purpose"`
}

// Prefill carries identity fields from a failed lookup into the manual
// form so the visitor does not retype them.
type Prefill struct {
	Phone       string
	YearOfBirth int
}

// EntryDirective is the set of mutually exclusive query-style
// directives the portal consumes once on load.
type EntryDirective struct {
	NewVisitor   bool
	ReturningID  uint64
	PrefillPhone string
	PrefillYear  int
}

// ParseEntry extracts the entry directive from query values and deletes
// the directive keys, mirroring the portal clearing them from the
// address bar so a reload does not replay them.  The directives are
// mutually exclusive; when several are present the precedence is
// returning ID, then prefill, then new visitor.
func ParseEntry(q url.Values) EntryDirective {
	var d EntryDirective
	if v := q.Get("returning_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil && id != 0 {
			d.ReturningID = id
		}
	}
	phone := q.Get("prefill_phone")
	year, _ := strconv.Atoi(q.Get("prefill_year"))
	if d.ReturningID == 0 && (phone != "" || year != 0) {
		d.PrefillPhone = phone
		d.PrefillYear = year
	}
	if d.ReturningID == 0 && d.PrefillPhone == "" && d.PrefillYear == 0 && q.Get("new_visitor") != "" {
		d.NewVisitor = true
	}
	for _, k := range []string{"returning_id", "prefill_phone", "prefill_year", "new_visitor"} {
		q.Del(k)
	}
	return d
}

// Config holds the machine's timing knobs.
type Config struct {
	IdleTimeout     time.Duration // inactivity window before forced exit
	IdleDebounce    time.Duration // activity events inside this window collapse
	RedirectSeconds int           // post-check-in countdown length
	TickInterval    time.Duration // countdown tick, one second in production
}

// DefaultConfig returns the timings used on real kiosks.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:     90 * time.Second,
		IdleDebounce:    250 * time.Millisecond,
		RedirectSeconds: 10,
		TickInterval:    time.Second,
	}
}

// Machine owns one kiosk session's working memory: the current phase,
// the chosen visitor type, prefill values from a failed lookup, and the
// resolved visitor/visit pair once check-in succeeds.  All collaborators
// are constructor parameters.  Methods are safe for concurrent use; the
// timers fire on their own goroutines.
type Machine struct {
	mu       sync.Mutex
	cfg      Config
	resolver Resolver
	api      CheckInAPI
	store    SessionStore
	onExit   func(ExitReason)

	phase     Phase
	prefill   Prefill
	result    *model.VisitorVisit
	lastErr   error
	inFlight  bool
	gen       uint64 // bumped on every exit; in-flight results from older generations are discarded
	idle      *IdleTimer
	countdown *Countdown
}

// NewMachine wires a machine to its collaborators.  onExit may be nil;
// when set, it runs once per session end with the reason, and the host
// navigates to the welcome screen.
func NewMachine(cfg Config, resolver Resolver, api CheckInAPI, store SessionStore, onExit func(ExitReason)) *Machine {
	if cfg.RedirectSeconds <= 0 {
		cfg.RedirectSeconds = DefaultConfig().RedirectSeconds
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	m := &Machine{
		cfg:      cfg,
		resolver: resolver,
		api:      api,
		store:    store,
		onExit:   onExit,
		phase:    PhaseSelectingType,
	}
	m.idle = NewIdleTimer(cfg.IdleTimeout, cfg.IdleDebounce, m.idleExpired)
	return m
}

// Phase returns the machine's current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Prefill returns the identity fields carried over from a failed
// lookup, for seeding the manual form's draft.
func (m *Machine) Prefill() Prefill {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefill
}

// Result returns the visitor/visit pair of the terminal state, and
// whether that state is the duplicate-conflict one.  ok is false before
// a check-in completes.
func (m *Machine) Result() (pair model.VisitorVisit, conflict bool, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return model.VisitorVisit{}, false, false
	}
	return *m.result, m.phase == PhaseDuplicateConflict, true
}

// LastErr returns the most recent non-fatal failure, for the retry
// affordance.  It is cleared by the next successful transition.
func (m *Machine) LastErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Touch reports user activity to the idle timer.
func (m *Machine) Touch() { m.idle.Touch() }

// Start processes the entry directive and arms the idle timer.  With no
// directive it first tries to resume a session from the durably stored
// visitor ID, then falls back to the type-selection screen.
func (m *Machine) Start(ctx context.Context, d EntryDirective) error {
	m.idle.Start()
	switch {
	case d.ReturningID != 0:
		return m.submitReturning(ctx, d.ReturningID)
	case d.PrefillPhone != "" || d.PrefillYear != 0:
		m.mu.Lock()
		m.prefill = Prefill{Phone: d.PrefillPhone, YearOfBirth: d.PrefillYear}
		m.phase = PhaseNewVisitorForm
		m.mu.Unlock()
		return nil
	case d.NewVisitor:
		m.mu.Lock()
		m.phase = PhaseNewVisitorForm
		m.mu.Unlock()
		return nil
	}
	return m.resume(ctx)
}

// resume re-resolves the active visit for a durably stored visitor ID
// after a page reload.  Any failure falls through to type selection; a
// stored ID without an active visit is stale and is cleared.
func (m *Machine) resume(ctx context.Context) error {
	id, ok, err := m.store.CurrentVisitor(ctx)
	if err != nil || !ok {
		return nil // already in PhaseSelectingType
	}
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	pair, err := m.api.ActiveVisit(ctx, id)
	if err != nil || !validPair(pair) {
		_ = m.store.Clear(ctx)
		return nil
	}
	m.enterTerminal(ctx, gen, pair, false)
	return nil
}

// ChooseNewVisitor moves from type selection to an empty registration
// form.
func (m *Machine) ChooseNewVisitor() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhaseSelectingType {
		return ErrInvalidTransition
	}
	m.phase = PhaseNewVisitorForm
	m.prefill = Prefill{}
	m.lastErr = nil
	m.idle.Touch()
	return nil
}

// LookupReturning handles the returning-visitor choice: it queries the
// resolver with the entered phone and birth year.  A hit skips the form
// and immediately attempts check-in for the resolved visitor (a UX
// shortcut, not a validation bypass).  A miss — including any transport
// failure — opens the manual form with both fields pre-filled exactly
// as entered.
func (m *Machine) LookupReturning(ctx context.Context, rawPhone string, year int) error {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.phase != PhaseSelectingType {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}
	m.phase = PhaseReturningLookup
	m.prefill = Prefill{Phone: phone, YearOfBirth: year}
	m.inFlight = true
	gen := m.gen
	m.mu.Unlock()
	m.idle.Touch()

	visitor, rerr := m.resolver.ResolveByPhoneYear(ctx, phone, year)

	m.mu.Lock()
	m.inFlight = false
	if gen != m.gen {
		m.mu.Unlock()
		return nil // session exited while the lookup was in flight; discard
	}
	if rerr != nil {
		m.phase = PhaseNewVisitorForm
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.submitReturning(ctx, visitor.ID)
}

// submitReturning runs the automatic returning-visitor check-in.  A
// duplicate conflict is a first-class outcome carrying the existing
// pair; any other failure falls back to the manual form so the visitor
// is never stuck.
func (m *Machine) submitReturning(ctx context.Context, visitorID uint64) error {
	m.mu.Lock()
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}
	m.phase = PhaseSubmitting
	m.inFlight = true
	gen := m.gen
	m.mu.Unlock()

	pair, err := m.api.CheckInReturning(ctx, visitorID)

	m.mu.Lock()
	m.inFlight = false
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	switch {
	case err == nil:
		if !validPair(pair) {
			m.mu.Unlock()
			return m.failMalformed(ctx)
		}
		m.mu.Unlock()
		m.enterTerminal(ctx, gen, pair, false)
		return nil
	case err == ErrDuplicateVisit:
		if !validPair(pair) {
			m.mu.Unlock()
			return m.failMalformed(ctx)
		}
		m.mu.Unlock()
		m.enterTerminal(ctx, gen, pair, true)
		return nil
	default:
		// Transient failure on the automatic path: hand over to the
		// manual form, pre-filled with whatever identity is known.
		m.phase = PhaseLookupFailed
		m.lastErr = err
		m.mu.Unlock()
		return nil
	}
}

// SubmitNewVisitor submits a completed registration form.  It is valid
// from the form phase and from the lookup-failed fallback.
func (m *Machine) SubmitNewVisitor(ctx context.Context, draft Draft) error {
	payload, err := draft.Payload()
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.phase != PhaseNewVisitorForm && m.phase != PhaseLookupFailed {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}
	m.phase = PhaseSubmitting
	m.inFlight = true
	gen := m.gen
	m.mu.Unlock()
	m.idle.Touch()

	pair, err := m.api.CheckInNew(ctx, payload)

	m.mu.Lock()
	m.inFlight = false
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	switch {
	case err == nil:
		if !validPair(pair) {
			m.mu.Unlock()
			return m.failMalformed(ctx)
		}
		m.mu.Unlock()
		m.enterTerminal(ctx, gen, pair, false)
		return nil
	case err == ErrDuplicateVisit:
		if !validPair(pair) {
			m.mu.Unlock()
			return m.failMalformed(ctx)
		}
		m.mu.Unlock()
		m.enterTerminal(ctx, gen, pair, true)
		return nil
	default:
		// Keep the visitor on the form with a retry affordance.
		m.phase = PhaseNewVisitorForm
		m.lastErr = err
		m.mu.Unlock()
		return err
	}
}

// enterTerminal lands in CheckedIn or DuplicateConflict: it stores the
// pair, persists the visitor ID durably, and starts the auto-redirect
// countdown.  The countdown is independent of the idle timer.  gen is
// the generation the triggering call was armed in; the callers' own
// generation check runs before they release the lock, so it must be
// repeated here or an exit landing in between would be silently
// overwritten by the late result.
func (m *Machine) enterTerminal(ctx context.Context, gen uint64, pair model.VisitorVisit, conflict bool) {
	m.mu.Lock()
	if gen != m.gen || m.phase == PhaseExit {
		m.mu.Unlock()
		return
	}
	m.result = &pair
	m.lastErr = nil
	if conflict {
		m.phase = PhaseDuplicateConflict
	} else {
		m.phase = PhaseCheckedIn
	}
	m.countdown = StartCountdown(m.cfg.RedirectSeconds, m.cfg.TickInterval, nil, func() {
		m.exitFrom(gen, ExitRedirect)
	})
	m.mu.Unlock()
	_ = m.store.SetCurrentVisitor(ctx, pair.Visitor.ID)
	m.idle.Touch()
}

// failMalformed handles a success or conflict response without a usable
// visitor/visit pair: fatal for this attempt, exit to the welcome
// screen rather than rendering with missing data.
func (m *Machine) failMalformed(ctx context.Context) error {
	m.mu.Lock()
	m.lastErr = ErrMalformedResponse
	m.mu.Unlock()
	m.exit(ExitIdle)
	return ErrMalformedResponse
}

// CancelRedirect stops the post-check-in countdown.  It is idempotent
// and leaves the idle timer running; the manual return-home action
// stays available regardless.
func (m *Machine) CancelRedirect() {
	m.mu.Lock()
	c := m.countdown
	m.mu.Unlock()
	if c != nil {
		c.Cancel()
	}
	m.idle.Touch()
}

// RedirectRemaining returns the seconds left on the auto-redirect
// countdown, or zero when none is running.
func (m *Machine) RedirectRemaining() int {
	m.mu.Lock()
	c := m.countdown
	m.mu.Unlock()
	if c == nil {
		return 0
	}
	return c.Remaining()
}

// CheckOut closes the active visit from a terminal view, clears the
// durable visitor ID and exits.  On failure the machine stays on the
// view so the action can be retried.
func (m *Machine) CheckOut(ctx context.Context) error {
	m.mu.Lock()
	if m.phase != PhaseCheckedIn && m.phase != PhaseDuplicateConflict || m.result == nil {
		m.mu.Unlock()
		return ErrInvalidTransition
	}
	if m.inFlight {
		m.mu.Unlock()
		return ErrBusy
	}
	m.inFlight = true
	visitID := m.result.Visit.ID
	gen := m.gen
	m.mu.Unlock()

	err := m.api.CheckOut(ctx, visitID)

	m.mu.Lock()
	m.inFlight = false
	if gen != m.gen {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()
	_ = m.store.Clear(ctx)
	m.exit(ExitCheckout)
	return nil
}

// ReturnHome is the manual exit always offered on the terminal views.
// Like the countdown it keeps the stored visitor ID, because the visit
// is still open.
func (m *Machine) ReturnHome() { m.exit(ExitManual) }

// idleExpired is the idle timer's callback: force the exit transition
// from wherever the machine currently is, discarding in-progress state
// and the durable visitor ID.
func (m *Machine) idleExpired() { m.exit(ExitIdle) }

func (m *Machine) exit(reason ExitReason) {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	m.exitFrom(gen, reason)
}

// exitFrom performs the exit transition if the machine is still in the
// generation the trigger was armed in; a stale trigger (countdown that
// lost the race with an idle exit, or vice versa) is ignored.
func (m *Machine) exitFrom(gen uint64, reason ExitReason) {
	m.mu.Lock()
	if gen != m.gen || m.phase == PhaseExit {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.phase = PhaseExit
	m.prefill = Prefill{}
	c := m.countdown
	m.countdown = nil
	m.mu.Unlock()

	if c != nil {
		c.Cancel()
	}
	m.idle.Stop()
	if reason == ExitIdle {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = m.store.Clear(ctx)
		cancel()
	}
	if m.onExit != nil {
		m.onExit(reason)
	}
}

// validPair rejects responses missing either half of the visitor/visit
// pair.
func validPair(p model.VisitorVisit) bool {
	return p.Visitor.ID != 0 && p.Visit.ID != 0 && p.Visit.VisitorID == p.Visitor.ID
}
