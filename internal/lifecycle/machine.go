// Package lifecycle provides a finite-state machine shared by the filing and TIN
// application workflows, together with per-key serialization of transitions.
package lifecycle

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition is wrapped by every error returned from Machine.Check.
var ErrInvalidTransition = errors.New("invalid state transition")

// Machine is an immutable transition table over a string-backed state enum.
// States without outgoing edges are terminal.
type Machine[S ~string] struct {
	name        string
	initial     S
	transitions map[S]map[S]bool
	locks       *KeyedMutex
}

// New builds a machine. Every state reachable in transitions becomes known.
func New[S ~string](name string, initial S, transitions map[S][]S) *Machine[S] {
	m := &Machine[S]{
		name:        name,
		initial:     initial,
		transitions: map[S]map[S]bool{initial: {}},
		locks:       NewKeyedMutex(),
	}
	for from, targets := range transitions {
		if m.transitions[from] == nil {
			m.transitions[from] = map[S]bool{}
		}
		for _, to := range targets {
			m.transitions[from][to] = true
			if m.transitions[to] == nil {
				m.transitions[to] = map[S]bool{}
			}
		}
	}
	return m
}

func (m *Machine[S]) Name() string { return m.name }

func (m *Machine[S]) Initial() S { return m.initial }

// States returns every known state in lexical order.
func (m *Machine[S]) States() []S {
	states := make([]S, 0, len(m.transitions))
	for s := range m.transitions {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}

func (m *Machine[S]) Known(s S) bool {
	_, ok := m.transitions[s]
	return ok
}

func (m *Machine[S]) Terminal(s S) bool {
	next, ok := m.transitions[s]
	return ok && len(next) == 0
}

func (m *Machine[S]) Can(from, to S) bool {
	return m.transitions[from][to]
}

// Check returns nil when from -> to is an edge of the table.
func (m *Machine[S]) Check(from, to S) error {
	switch {
	case !m.Known(from):
		return fmt.Errorf("%s: unknown state %q: %w", m.name, from, ErrInvalidTransition)
	case m.Terminal(from):
		return fmt.Errorf("%s: already %s: %w", m.name, from, ErrInvalidTransition)
	case !m.Can(from, to):
		return fmt.Errorf("%s: cannot move from %s to %s: %w", m.name, from, to, ErrInvalidTransition)
	}
	return nil
}

// WithLock runs fn while holding the machine's lock for key. The lock is released on
// every return path, including panics.
func (m *Machine[S]) WithLock(key string, fn func() error) error {
	unlock := m.locks.Lock(key)
	defer unlock()
	return fn()
}
