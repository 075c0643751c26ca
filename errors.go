package gochan

// Error taxonomy (spec.md §7):
//
//   - ChannelClosed (send after close) and ChannelDrained (receive on a
//     closed, drained channel) are never reported as Go errors: they are
//     surfaced as the plain `bool`/`(T, bool)` return values Send and
//     Receive already use, exactly like the builtin `chan`.
//   - SelectAllClosed is the OutcomeAllClosed case of Select. TrySelect
//     never reports it: with nothing ready it returns OutcomeDefault.
//   - PoolExhaustedTransient never surfaces to a caller: internal/waiter's
//     Pool falls back to a fresh allocation instead of failing.
//   - InvariantViolation (a waiter released in an illegal state or with a
//     dangling payload, semaphore counter overflow, a channel without the
//     select protocol) is a bug in this library, not a user
//     error, and is fatal: it panics with a descriptive message rather
//     than being wrapped in an error value a caller might try to recover
//     from and continue past.
//
// fatal reports an InvariantViolation.
func fatal(msg string) {
	panic("gochan: invariant violation: " + msg)
}
