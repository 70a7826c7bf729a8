// Package state is a minimal reducer-driven state container: the external
// snapshot source that a selector graph observes.
//
// A Store holds the current snapshot and replaces it by running a Reducer
// over dispatched actions. After every transition it notifies its
// listeners, typically a *selector.Graph, with the new snapshot. Stores are
// meant to be driven from a single goroutine (see package engine); Current
// may be read from any goroutine.
//
// Dispatchers decorate the path into the store. GuardingDispatcher rejects
// nil and reentrant dispatches and logs every action that is not on its
// ignore list. Codec maps action kinds to concrete action types so actions
// can be decoded from YAML, HTTP or the journal.
package state
