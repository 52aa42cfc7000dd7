package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-portal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingTimer struct {
	at time.Duration
	fn func()
}

// fakeScheduler collects timers and fires them when the clock is advanced
type fakeScheduler struct {
	mu      sync.Mutex
	elapsed time.Duration
	timers  []pendingTimer
}

func (f *fakeScheduler) AfterFunc(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timers = append(f.timers, pendingTimer{at: f.elapsed + d, fn: fn})
}

func (f *fakeScheduler) Advance(d time.Duration) {
	f.mu.Lock()
	f.elapsed += d
	var due []func()
	remaining := f.timers[:0]
	for _, t := range f.timers {
		if t.at <= f.elapsed {
			due = append(due, t.fn)
			continue
		}
		remaining = append(remaining, t)
	}
	f.timers = remaining
	f.mu.Unlock()

	for _, fn := range due {
		fn()
	}
}

func newTestStore() (*notify.Store, *fakeScheduler) {
	sched := &fakeScheduler{}
	return notify.New().WithScheduler(sched), sched
}

func TestStore_InitialState(t *testing.T) {
	store, _ := newTestStore()
	state := store.Snapshot()

	assert.False(t, state.Toast.Shown)
	assert.Equal(t, notify.SeveritySuccess, state.Toast.Severity)
	assert.Empty(t, state.Toast.Message)
	assert.False(t, state.Modal.Shown())
}

func TestStore_ToastDefaultsToSuccess(t *testing.T) {
	store, _ := newTestStore()

	toast := store.Toast("Saved")
	assert.True(t, toast.Shown)
	assert.Equal(t, notify.SeveritySuccess, toast.Severity)
	assert.Equal(t, "Saved", toast.Message)
	assert.NotEmpty(t, toast.ID)

	toast = store.Toast("Careful", notify.Severity("bogus"))
	assert.Equal(t, notify.SeveritySuccess, toast.Severity)

	toast = store.Error("Failed")
	assert.Equal(t, notify.SeverityError, toast.Severity)
	assert.Equal(t, toast, store.Snapshot().Toast)
}

func TestStore_ToastHidesAfterDuration(t *testing.T) {
	store, sched := newTestStore()

	store.Toast("Saved")

	sched.Advance(2999 * time.Millisecond)
	assert.True(t, store.Snapshot().Toast.Shown)

	sched.Advance(time.Millisecond)
	state := store.Snapshot()
	assert.False(t, state.Toast.Shown)
	assert.Equal(t, "Saved", state.Toast.Message, "hiding keeps the last message")
}

func TestStore_StaleTimerKeepsNewerToast(t *testing.T) {
	store, sched := newTestStore()

	store.Toast("first")
	sched.Advance(2000 * time.Millisecond)
	store.Warning("second")

	sched.Advance(1000 * time.Millisecond)
	state := store.Snapshot()
	assert.True(t, state.Toast.Shown, "first timer must not hide the second toast")
	assert.Equal(t, "second", state.Toast.Message)

	sched.Advance(2000 * time.Millisecond)
	assert.False(t, store.Snapshot().Toast.Shown)
}

func TestStore_ConfirmExecutesOnce(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	calls := 0
	store.RequestConfirm("Delete", "Delete this article?", func(ctx context.Context) error {
		calls++
		return nil
	})

	state := store.Snapshot()
	assert.Equal(t, notify.ModalConfirm, state.Modal.Kind)
	assert.Equal(t, "Delete", state.Modal.Title)
	assert.Equal(t, "Delete this article?", state.Modal.Message)

	require.NoError(t, store.Execute(ctx))
	require.NoError(t, store.Execute(ctx))

	assert.Equal(t, 1, calls)
	assert.False(t, store.Snapshot().Modal.Shown())
}

func TestStore_ExecuteReturnsActionError(t *testing.T) {
	store, _ := newTestStore()
	boom := errors.New("boom")

	store.RequestConfirm("Delete", "", func(ctx context.Context) error { return boom })

	err := store.Execute(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.Snapshot().Modal.Shown())
}

func TestStore_ActionMayToast(t *testing.T) {
	store, _ := newTestStore()

	store.RequestConfirm("Delete", "", func(ctx context.Context) error {
		store.Success("Deleted")
		return nil
	})

	require.NoError(t, store.Execute(context.Background()))
	assert.Equal(t, "Deleted", store.Snapshot().Toast.Message)
}

func TestStore_PromptUsesDraft(t *testing.T) {
	store, _ := newTestStore()

	var got string
	store.RequestPrompt("New category", "untitled", func(ctx context.Context, value string) error {
		got = value
		return nil
	})

	state := store.Snapshot()
	assert.Equal(t, notify.ModalPrompt, state.Modal.Kind)
	assert.Equal(t, "untitled", state.Modal.Draft)

	assert.True(t, store.SetDraft("Sports"))
	assert.Equal(t, "Sports", store.Snapshot().Modal.Draft)

	require.NoError(t, store.Execute(context.Background()))
	assert.Equal(t, "Sports", got)
	assert.False(t, store.SetDraft("late"), "no prompt is pending")
}

func TestStore_SetDraftIgnoresConfirm(t *testing.T) {
	store, _ := newTestStore()
	store.RequestConfirm("Delete", "", nil)

	assert.False(t, store.SetDraft("x"))
	assert.Empty(t, store.Snapshot().Modal.Draft)
}

func TestStore_NewRequestReplacesPending(t *testing.T) {
	store, _ := newTestStore()

	firstRan := false
	store.RequestConfirm("first", "", func(ctx context.Context) error {
		firstRan = true
		return nil
	})

	secondRan := false
	store.RequestConfirm("second", "", func(ctx context.Context) error {
		secondRan = true
		return nil
	})

	assert.Equal(t, "second", store.Snapshot().Modal.Title)
	require.NoError(t, store.Execute(context.Background()))
	assert.False(t, firstRan)
	assert.True(t, secondRan)
}

func TestStore_Discard(t *testing.T) {
	store, _ := newTestStore()

	ran := false
	store.RequestPrompt("Rename", "", func(ctx context.Context, value string) error {
		ran = true
		return nil
	})

	assert.True(t, store.Discard())
	assert.False(t, store.Discard())
	require.NoError(t, store.Execute(context.Background()))
	assert.False(t, ran)
}

func TestRegistry_OneStorePerVisitor(t *testing.T) {
	registry := notify.NewRegistry(nil)

	a := registry.Get("visitor-a")
	b := registry.Get("visitor-b")
	require.NotSame(t, a, b)
	assert.Same(t, a, registry.Get("visitor-a"))
	assert.Equal(t, 2, registry.Len())
}

func TestRegistry_PeekDoesNotCreate(t *testing.T) {
	registry := notify.NewRegistry(nil)

	_, ok := registry.Peek("visitor-a")
	assert.False(t, ok)

	lazy := registry.Lazy("visitor-a")
	assert.Equal(t, notify.State{}, lazy.Snapshot())
	assert.Equal(t, 0, registry.Len())

	lazy.Store().Info("hello")
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, "hello", lazy.Snapshot().Toast.Message)
}

func TestRegistry_SweepDropsIdleStores(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := notify.NewRegistry(nil).
		WithIdleTimeout(10 * time.Minute).
		WithClock(func() time.Time { return now })

	registry.Get("idle")
	now = now.Add(5 * time.Minute)
	registry.Get("active")

	now = now.Add(6 * time.Minute)
	_, ok := registry.Peek("active")
	require.True(t, ok)

	assert.Equal(t, 1, registry.Sweep())
	_, ok = registry.Peek("idle")
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistry_EvictsOldestWhenFull(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	registry := notify.NewRegistry(nil).
		WithMaxVisitors(2).
		WithClock(func() time.Time { return now })

	registry.Get("first")
	now = now.Add(time.Second)
	registry.Get("second")
	now = now.Add(time.Second)
	registry.Get("first")
	now = now.Add(time.Second)
	registry.Get("third")

	assert.Equal(t, 2, registry.Len())
	_, ok := registry.Peek("second")
	assert.False(t, ok, "least recently used store makes room")
	_, ok = registry.Peek("first")
	assert.True(t, ok)
}
