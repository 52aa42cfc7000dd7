// Package notify holds the transient UI feedback of a visitor: one toast
// and at most one pending modal (confirm or prompt).
//
// Toasts hide themselves after DefaultToastDuration. Every emission bumps a
// generation counter and a hide timer only hides the toast it was armed
// for, so a late timer never hides a newer toast.
//
// Modals are a tagged variant: none, a pending confirm carrying an action,
// or a pending prompt carrying an action and an editable draft. A new
// request replaces the pending one without running it. Use Discard to drop
// a modal explicitly.
//
// Stores are created by a Registry at the composition root, one per
// visitor, on the first write. A store is never reset while it lives; the
// registry drops it after an idle period or when it is the least recently
// used one of a full registry. Views only read Snapshot values.
package notify
