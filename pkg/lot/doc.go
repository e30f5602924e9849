// Package lot implements the per-conversation batch session state machine:
// images are buffered into a lot until the user ends it or a flush timeout
// fires, then the whole lot is converted and dispatched in arrival order.
//
// Invariants:
// - At most one session exists per conversation id.
// - A timer pair only ever belongs to a live session, and is armed only once
//   an image arrives, never by start alone; resets cancel the previous
//   handles before arming new ones.
// - Buffered items keep arrival order, never reordered or deduplicated.
// - Operations on the same conversation serialize; different conversations
//   never block each other.
// - Timer callbacks are advisory: they re-check session existence at fire
//   time and no-op when the session is already gone.
//
// Usage:
//
//	ctrl, _ := lot.NewController(lot.Config{Pipeline: pipeline, Notifier: transport})
//	ctrl.Start(ctx, "conversation:1")
//	ctrl.AddItem(ctx, "conversation:1", imageBytes)
//	ctrl.End(ctx, "conversation:1", lastImageBytes)
package lot
