// Package harness runs conformance scenarios against the counter
// application's selector graph.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: doubled_chain
//	description: "doubled follows the counter, isEven never changes"
//	session: test-session-chain
//	initial: 0
//	subscriptions: [doubled, isEven]
//	steps:
//	  - dispatch: counter/increment
//	  - dispatch: counter/set
//	    args: { value: 12 }
//	  - unsubscribe: doubled
//	  - subscribe: primes
//	  - release: primes
//	  - dispatch: counter/explode
//	    error: unknown action
//	assertions:
//	  - type: notified
//	    node: doubled
//	    values: [0, 2, 24]
//	  - type: notify_count
//	    node: isEven
//	    count: 1
//	  - type: final_tick
//	    tick: 3
//
// Every file is checked against an embedded CUE schema before it is
// decoded, and decoding rejects unknown fields.
//
// # Steps
//
//   - dispatch: enqueue an action by kind, with optional args, and wait
//     for it to be applied. error names a substring the step's error must
//     contain; without it the step must succeed.
//   - subscribe / unsubscribe: attach or detach the scenario's observer
//     on a node. A node has at most one scenario observer.
//   - release: drop the creator reference on a node. Its subscription, if
//     any, keeps it alive.
//
// # Assertion Types
//
//   - notified: the node delivered at least one value (at tick, if given);
//     values, if given, is the exact sequence delivered
//   - not_notified: the node delivered nothing (at tick, if given)
//   - notify_count: the node delivered exactly count values
//   - final_value: the node's value once every step ran
//   - final_tick: the graph's logical time once every step ran
//
// # Determinism
//
// Scenarios run on a real engine with a fixed session token, so the trace
// and any journal entries are identical across runs. Traces are compared
// against golden files with RunWithGolden.
package harness
