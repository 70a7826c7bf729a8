// Package selector implements the incremental computation graph at the heart
// of selgraph.
//
// A Graph owns a logical clock and the latest snapshot of some external state.
// Callers declare Nodes: memoized derived values computed from the snapshot
// or from other nodes of the same graph. Observers subscribe to nodes and
// receive exactly the notifications needed to stay current.
//
// # Time
//
// The clock starts at 1 and advances by one for every distinct snapshot the
// graph observes (snapshots are compared with ==, i.e. by identity for
// pointer states). Delivering the same snapshot twice never advances it.
// Logical time is the only driver of change detection.
//
// # Pull and push
//
// Node.Synchronize is the pull side. It is idempotent per tick: it first
// synchronizes every dependency, then reruns the producer only when the node
// is a root, has never run, or a dependency changed after the node was last
// synchronized. A rerun whose result is equal to the cached value does not
// count as a change.
//
// Node.ForwardIfNeeded is the push side. It runs once per external change for
// every live node, and only notifies observers when the node's own value
// changed on the current tick. A node whose ancestors changed but whose own
// output did not stays silent (no glitches). For a diamond
// Root -> {X, Y} -> Z, Z's producer runs at most once per tick.
//
// # Lifecycle
//
// Nodes live in an arena addressed by generation-checked Handles. Ownership
// is reference counted: the creator holds one reference (dropped with
// Release), each Subscription holds one, and each dependent node holds one
// on every dependency. A node whose count drops to zero is reclaimed by the
// next propagation pass. There is no other cleanup.
//
// # Concurrency
//
// A graph and its nodes are single-threaded. All calls must come from one
// logical thread (see package engine for the loop that provides it).
// Subscribing and unsubscribing from inside an observer callback is
// supported: observer lists are replaced, never mutated in place.
//
// # Failures
//
// A panicking producer aborts the synchronization chain that called it and
// leaves the node's timestamps untouched, so the next tick retries. A
// panicking observer is isolated: the panic is logged, reported through
// Hooks.OnObserverPanic, and delivery continues with the next observer.
package selector
