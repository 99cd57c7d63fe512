package statemachine

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoTransition        = errors.New("no transition for event")
	ErrGuardRejected       = errors.New("transition rejected by guard")
	ErrDuplicateTransition = errors.New("duplicate unguarded transition")
)

// Guard decides at fire time whether a transition may be taken.
type Guard[S comparable] func(ctx context.Context, from S) bool

// Transition moves From to To on Event. Several transitions may share a
// From/Event pair when all but the last are guarded; the first one whose
// guard passes wins.
type Transition[S, E comparable] struct {
	From  S
	Event E
	To    S
	Guard Guard[S]
}

// Table is an immutable transition table, safe for concurrent use.
type Table[S, E comparable] struct {
	byFrom map[S]map[E][]Transition[S, E]
}

func NewTable[S, E comparable](transitions ...Transition[S, E]) (*Table[S, E], error) {
	t := &Table[S, E]{byFrom: make(map[S]map[E][]Transition[S, E])}
	for _, tr := range transitions {
		byEvent, ok := t.byFrom[tr.From]
		if !ok {
			byEvent = make(map[E][]Transition[S, E])
			t.byFrom[tr.From] = byEvent
		}
		existing := byEvent[tr.Event]
		if n := len(existing); n > 0 && existing[n-1].Guard == nil {
			return nil, fmt.Errorf("%w: %v on %v", ErrDuplicateTransition, tr.From, tr.Event)
		}
		byEvent[tr.Event] = append(existing, tr)
	}
	return t, nil
}

// MustTable is NewTable for package-level tables.
func MustTable[S, E comparable](transitions ...Transition[S, E]) *Table[S, E] {
	t, err := NewTable(transitions...)
	if err != nil {
		panic(err)
	}
	return t
}

// Next returns the state reached from `from` on event.
func (t *Table[S, E]) Next(ctx context.Context, from S, event E) (S, error) {
	candidates := t.byFrom[from][event]
	if len(candidates) == 0 {
		return from, fmt.Errorf("%w: %v from %v", ErrNoTransition, event, from)
	}
	for _, tr := range candidates {
		if tr.Guard == nil || tr.Guard(ctx, from) {
			return tr.To, nil
		}
	}
	return from, fmt.Errorf("%w: %v from %v", ErrGuardRejected, event, from)
}

// Terminal reports whether no transition leaves s.
func (t *Table[S, E]) Terminal(s S) bool {
	return len(t.byFrom[s]) == 0
}

// Events lists the events accepted in s, in no particular order.
func (t *Table[S, E]) Events(s S) []E {
	events := make([]E, 0, len(t.byFrom[s]))
	for e := range t.byFrom[s] {
		events = append(events, e)
	}
	return events
}
