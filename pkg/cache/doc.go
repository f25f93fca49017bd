// Package cache implements the result caches used on the request path.
//
// Three flavors are provided:
//
//   - Timed: a plain value memo. Store a value with the time it was produced;
//     Hit reports true while that time is within the timeout.
//   - Shared: deduplicates an asynchronous producer. Every caller that asks
//     while a computation is in flight waits for the same result. Once the
//     result settles a cooldown timer starts; until it fires, new callers get
//     the settled value without invoking the producer again. Refresh starts a
//     new cycle at any time and discards the previous result.
//   - Keyed: an LRU-bounded set of Shared caches, one per request key.
//
// # Failures
//
// A failed computation is delivered to every caller already waiting on it,
// but it never enters cooldown: the next caller starts a fresh attempt.
//
// # Time
//
// All timers come from a clock.Clock so tests can drive cooldowns with
// clock.NewMock().
package cache
