package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays visible
const DefaultToastDuration = 3000 * time.Millisecond

// Severity represents the toast notification type.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// IsValid reports whether s is a known severity
func (s Severity) IsValid() bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityWarning, SeverityInfo:
		return true
	default:
		return false
	}
}

// ModalKind tags the pending modal
type ModalKind string

const (
	ModalNone    ModalKind = ""
	ModalConfirm ModalKind = "confirm"
	ModalPrompt  ModalKind = "prompt"
)

// ConfirmAction runs when a confirm modal is accepted
type ConfirmAction func(ctx context.Context) error

// PromptAction runs with the draft value when a prompt modal is accepted
type PromptAction func(ctx context.Context, value string) error

// Toast is the visible state of the toast
type Toast struct {
	ID        string    `json:"id,omitempty"`
	Shown     bool      `json:"shown"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Modal is the visible state of the pending modal
type Modal struct {
	Kind    ModalKind `json:"kind"`
	Title   string    `json:"title,omitempty"`
	Message string    `json:"message,omitempty"`
	Draft   string    `json:"draft,omitempty"`
}

// Shown reports whether a modal is pending
func (m Modal) Shown() bool {
	return m.Kind != ModalNone
}

// State is an immutable copy handed to the views
type State struct {
	Toast Toast `json:"toast"`
	Modal Modal `json:"modal"`
}

type pendingModal interface {
	view() Modal
	run(ctx context.Context) error
}

type pendingConfirm struct {
	title   string
	message string
	action  ConfirmAction
}

func (p *pendingConfirm) view() Modal {
	return Modal{Kind: ModalConfirm, Title: p.title, Message: p.message}
}

func (p *pendingConfirm) run(ctx context.Context) error {
	if p.action == nil {
		return nil
	}
	return p.action(ctx)
}

type pendingPrompt struct {
	title  string
	draft  string
	action PromptAction
}

func (p *pendingPrompt) view() Modal {
	return Modal{Kind: ModalPrompt, Title: p.title, Draft: p.draft}
}

func (p *pendingPrompt) run(ctx context.Context) error {
	if p.action == nil {
		return nil
	}
	return p.action(ctx, p.draft)
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Store holds the notification state of one visitor
type Store struct {
	mu         sync.Mutex
	toast      Toast
	generation uint64
	pending    pendingModal
	duration   time.Duration
	scheduler  Scheduler
	now        func() time.Time
	newID      func() string
}

// New creates a store with the default toast duration and wall clock timers
func New() *Store {
	return &Store{
		toast:     Toast{Severity: SeveritySuccess},
		duration:  DefaultToastDuration,
		scheduler: timeScheduler{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *Store) WithScheduler(scheduler Scheduler) *Store {
	if scheduler != nil {
		s.scheduler = scheduler
	}
	return s
}

func (s *Store) WithDuration(d time.Duration) *Store {
	if d > 0 {
		s.duration = d
	}
	return s
}

func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Toast shows message and arms the hide timer. Severity defaults to success.
func (s *Store) Toast(message string, severity ...Severity) Toast {
	level := SeveritySuccess
	if len(severity) > 0 && severity[0].IsValid() {
		level = severity[0]
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.toast = Toast{
		ID:        s.newID(),
		Shown:     true,
		Severity:  level,
		Message:   message,
		EmittedAt: s.now(),
	}
	current := s.toast
	s.mu.Unlock()

	s.scheduler.AfterFunc(s.duration, func() {
		s.hide(gen)
	})

	return current
}

func (s *Store) Success(message string) Toast { return s.Toast(message, SeveritySuccess) }

func (s *Store) Error(message string) Toast { return s.Toast(message, SeverityError) }

func (s *Store) Warning(message string) Toast { return s.Toast(message, SeverityWarning) }

func (s *Store) Info(message string) Toast { return s.Toast(message, SeverityInfo) }

func (s *Store) hide(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.toast.Shown = false
}

// RequestConfirm replaces any pending modal with a confirm modal
func (s *Store) RequestConfirm(title, message string, action ConfirmAction) {
	s.mu.Lock()
	s.pending = &pendingConfirm{title: title, message: message, action: action}
	s.mu.Unlock()
}

// RequestPrompt replaces any pending modal with a prompt whose draft
// starts at defaultValue
func (s *Store) RequestPrompt(title, defaultValue string, action PromptAction) {
	s.mu.Lock()
	s.pending = &pendingPrompt{title: title, draft: defaultValue, action: action}
	s.mu.Unlock()
}

// SetDraft updates the draft of a pending prompt. It returns false when
// no prompt is pending.
func (s *Store) SetDraft(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending.(*pendingPrompt)
	if !ok {
		return false
	}
	p.draft = value
	return true
}

// Execute runs the pending action once and clears the modal. Without a
// pending modal it does nothing. The action runs outside the lock so it
// may emit toasts.
func (s *Store) Execute(ctx context.Context) error {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	return p.run(ctx)
}

// Discard drops the pending modal without running it
func (s *Store) Discard() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.pending != nil
	s.pending = nil
	return had
}

// Snapshot copies the current state for rendering
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := State{Toast: s.toast}
	if s.pending != nil {
		state.Modal = s.pending.view()
	}
	return state
}
