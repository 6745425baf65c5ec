// Package transform turns edit intents into consistent network edits.
//
// # Modifiers
//
// A [Modifier] is a single step over an [Input], a scratch record with two
// track slots and two vertex slots. Modifiers are composed with [Combine],
// which runs them in order and restores the Input when any step fails, so a
// failed chain never leaves the slots half-filled:
//
//	in := &transform.Input{V1: v}
//	err := transform.Combine(transform.ExtractTrack, transform.ExtractOpenVertex).Modify(eg, in)
//
// # Operations
//
// An [Operation] is a complete edit such as [SplitTrack] or [MoveVertices].
// Operations run against a [UnitOfWork], which imports authoritative elements
// into its editable graph on first reference and returns the same working
// record on every later reference. Results are written back into the
// operation value.
//
//	uow := transform.NewUnitOfWork(g, transform.WithLogger(logger))
//	split := &transform.SplitTrack{TrackID: 1, At: 0.5}
//	if err := uow.Apply(ctx, split); err != nil {
//	    uow.Discard()
//	    return err
//	}
//	changes, err := uow.Commit(ctx)
//
// A unit of work is single use: it is either committed or discarded.
package transform
