// Package statemachine holds immutable, generic transition tables.
//
// A table is declared once and consulted per entity with the entity's
// stored state:
//
//	var orders = statemachine.MustTable(
//		statemachine.Transition[State, Event]{From: Open, Event: Pay, To: Paid},
//	)
//
//	next, err := orders.Next(ctx, current, Pay)
//	if errors.Is(err, statemachine.ErrNoTransition) {
//		// forbidden move
//	}
package statemachine
