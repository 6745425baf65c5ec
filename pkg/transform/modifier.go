package transform

import (
	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/network"
)

// Input is the scratch state threaded through a modifier chain.
type Input struct {
	T1, T2 *network.Track
	V1, V2 *network.Vertex
}

// Modifier is one step of an edit. It may read and write the Input slots and
// fork elements into eg.
type Modifier interface {
	Modify(eg *network.EditableGraph, in *Input) error
}

// ModifierFunc adapts a function to Modifier.
type ModifierFunc func(eg *network.EditableGraph, in *Input) error

// Modify calls f.
func (f ModifierFunc) Modify(eg *network.EditableGraph, in *Input) error { return f(eg, in) }

type combined []Modifier

// Combine returns a modifier running mods in order. The first failure stops
// the chain and restores the Input slots to their state before the chain
// started.
func Combine(mods ...Modifier) Modifier { return combined(mods) }

func (c combined) Modify(eg *network.EditableGraph, in *Input) error {
	snapshot := *in
	for _, m := range c {
		if err := m.Modify(eg, in); err != nil {
			*in = snapshot
			return err
		}
	}
	return nil
}

// ExtractTrack puts the single track of V1 into the first empty track slot.
// V1 must be open: exactly one track attached.
var ExtractTrack = ModifierFunc(func(eg *network.EditableGraph, in *Input) error {
	if in.V1 == nil {
		return errors.Precondition("extract track: no vertex in slot 1")
	}
	if !in.V1.HasOneTrack() {
		return errors.Precondition("extract track: vertex %d has %d tracks, want 1", in.V1.ID(), in.V1.Degree())
	}
	return in.putTrack(in.V1.Tracks()[0])
})

// ExtractOpenVertex puts the open end of T1 into the first empty vertex
// slot, forking it when needed. The end other than V1 is preferred; either
// way the chosen vertex must have exactly one track.
var ExtractOpenVertex = ModifierFunc(func(eg *network.EditableGraph, in *Input) error {
	if in.T1 == nil {
		return errors.Precondition("extract open vertex: no track in slot 1")
	}
	var open *network.Vertex
	for _, v := range candidates(in.T1, in.V1) {
		if v != nil && v.HasOneTrack() {
			open = v
			break
		}
	}
	if open == nil {
		return errors.Precondition("extract open vertex: track %d has no open end", in.T1.ID())
	}
	wv, err := eg.Fork(open)
	if err != nil {
		return err
	}
	return in.putVertex(wv)
})

// ExtractFarVertex puts the end of T1 opposite V1 into V2, forking it when
// needed.
var ExtractFarVertex = ModifierFunc(func(eg *network.EditableGraph, in *Input) error {
	if in.T1 == nil || in.V1 == nil {
		return errors.Precondition("extract far vertex: track and vertex slot 1 must be set")
	}
	far := in.T1.Other(in.V1)
	if far == nil {
		return errors.Precondition("extract far vertex: vertex %d is not an end of track %d", in.V1.ID(), in.T1.ID())
	}
	wv, err := eg.Fork(far)
	if err != nil {
		return err
	}
	in.V2 = wv
	return nil
})

// SwapTracks exchanges T1 and T2.
var SwapTracks = ModifierFunc(func(_ *network.EditableGraph, in *Input) error {
	in.T1, in.T2 = in.T2, in.T1
	return nil
})

// SwapVertices exchanges V1 and V2.
var SwapVertices = ModifierFunc(func(_ *network.EditableGraph, in *Input) error {
	in.V1, in.V2 = in.V2, in.V1
	return nil
})

// StraightFirst moves a straight track into T1 when only T2 is straight.
var StraightFirst = ModifierFunc(func(eg *network.EditableGraph, in *Input) error {
	if in.T2 != nil && in.T2.Kind() == network.Straight && (in.T1 == nil || in.T1.Kind() != network.Straight) {
		return SwapTracks(eg, in)
	}
	return nil
})

// candidates lists the ends of t, the one opposite v first.
func candidates(t *network.Track, v *network.Vertex) []*network.Vertex {
	if v != nil {
		if far := t.Other(v); far != nil {
			return []*network.Vertex{far, v}
		}
	}
	return []*network.Vertex{t.Vertex(0), t.Vertex(1)}
}

func (in *Input) putTrack(t *network.Track) error {
	switch {
	case in.T1 == nil:
		in.T1 = t
	case in.T2 == nil:
		in.T2 = t
	default:
		return errors.Precondition("both track slots are taken")
	}
	return nil
}

func (in *Input) putVertex(v *network.Vertex) error {
	switch {
	case in.V1 == nil:
		in.V1 = v
	case in.V2 == nil:
		in.V2 = v
	default:
		return errors.Precondition("both vertex slots are taken")
	}
	return nil
}
