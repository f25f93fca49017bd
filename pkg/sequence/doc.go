// Package sequence provides the cyclic identifier allocator used for
// request ids and transport-level send counters.
//
// An Allocator walks an inclusive numeric range in order, skipping a fixed
// reserved set, and wraps from max back to min. Callers that must also avoid
// values currently in flight use NextFree with a predicate:
//
//	alloc, _ := sequence.New(0, 255, 0) // 0 is reserved for events
//	id, ok := alloc.NextFree(func(v int) bool { return pending[v] })
package sequence
