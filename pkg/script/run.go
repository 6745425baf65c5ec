package script

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/transform"
	"github.com/trackyard/trackyard/pkg/world"
)

// Result summarizes a replay.
type Result struct {
	Steps []StepResult
	// Vertices and Tracks map reference names to committed identifiers.
	Vertices map[string]int64
	Tracks   map[string]int64
}

// StepResult is the outcome of one committed step.
type StepResult struct {
	Name     string
	Changes  network.Changes
	Rejected int
	// Resized is set when the step extended or shrank the world.
	Resized bool
}

// Rejected returns the number of refused moves over all steps.
func (r *Result) Rejected() int {
	n := 0
	for _, s := range r.Steps {
		n += s.Rejected
	}
	return n
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger passed to every unit of work.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStepHook registers fn to run after every committed step.
func WithStepHook(fn func(i int, sr StepResult)) Option {
	return func(r *Runner) { r.onStep = fn }
}

// WithStrictMoves makes a refused move fail its step instead of being
// skipped.
func WithStrictMoves() Option {
	return func(r *Runner) { r.strict = true }
}

// Runner replays scripts against a graph.
type Runner struct {
	logger *log.Logger
	onStep func(int, StepResult)
	strict bool
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays every step of s against g. It stops at the first failing step;
// steps committed before it stay committed and are reported in the result.
func (r *Runner) Run(ctx context.Context, g *network.Graph, s *Script) (*Result, error) {
	res := &Result{Vertices: map[string]int64{}, Tracks: map[string]int64{}}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		sr, err := r.runStep(ctx, g, step, res)
		if err != nil {
			return res, fmt.Errorf("step %d %q: %w", i+1, step.Name, err)
		}
		res.Steps = append(res.Steps, sr)
		if r.onStep != nil {
			r.onStep(i, sr)
		}
	}
	return res, nil
}

// Apply validates step against the refs already in res and runs it as the
// next step of a replay. On success the step is appended to res.
func (r *Runner) Apply(ctx context.Context, g *network.Graph, step Step, res *Result) (StepResult, error) {
	n := len(res.Steps) + 1
	vertices, tracks := make(map[string]bool, len(res.Vertices)), make(map[string]bool, len(res.Tracks))
	for ref := range res.Vertices {
		vertices[ref] = true
	}
	for ref := range res.Tracks {
		tracks[ref] = true
	}
	if err := step.check(n, vertices, tracks); err != nil {
		return StepResult{}, err
	}
	sr, err := r.runStep(ctx, g, step, res)
	if err != nil {
		return StepResult{}, fmt.Errorf("step %d %q: %w", n, step.Name, err)
	}
	res.Steps = append(res.Steps, sr)
	if r.onStep != nil {
		r.onStep(n-1, sr)
	}
	return sr, nil
}

// pending records a reference whose identifier is known after commit.
type pending struct {
	ref    string
	vertex **network.Vertex
	track  **network.Track
}

// runStep applies every op of step in one unit of work. World resizes take
// effect immediately so later ops can use the new segments; a failing step
// puts the world back the way it found it.
func (r *Runner) runStep(ctx context.Context, g *network.Graph, step Step, res *Result) (_ StepResult, err error) {
	u := transform.NewUnitOfWork(g, transform.WithLogger(r.logger))
	var (
		refs    []pending
		saved   world.Layout
		resized bool
	)
	defer func() {
		if err != nil && resized {
			g.World().Restore(saved)
		}
	}()
	for j, op := range step.Ops {
		if op.Type == OpExtendWorld || op.Type == OpShrinkWorld {
			if !resized {
				saved = g.World().Layout()
			}
			if err := resizeWorld(g.World(), op); err != nil {
				u.Discard()
				return StepResult{}, fmt.Errorf("op %d: %w", j+1, err)
			}
			resized = true
			continue
		}
		top, after, err := r.operation(op, res)
		if err != nil {
			u.Discard()
			return StepResult{}, fmt.Errorf("op %d: %w", j+1, err)
		}
		if err := u.Apply(ctx, top); err != nil {
			u.Discard()
			return StepResult{}, fmt.Errorf("op %d: %w", j+1, err)
		}
		if m, ok := top.(*transform.MoveVertices); ok && !m.Moved && r.strict {
			u.Discard()
			return StepResult{}, errors.Precondition("op %d: move of %v refused", j+1, op.Vertices)
		}
		refs = append(refs, after...)
	}
	ch, err := u.Commit(ctx)
	if err != nil {
		u.Discard()
		return StepResult{}, err
	}
	for _, p := range refs {
		switch {
		case p.vertex != nil && *p.vertex != nil:
			res.Vertices[p.ref] = (*p.vertex).ID()
		case p.track != nil && *p.track != nil:
			res.Tracks[p.ref] = (*p.track).ID()
		}
	}
	return StepResult{Name: step.Name, Changes: ch, Rejected: u.Rejected(), Resized: resized}, nil
}

func (r *Runner) operation(op Op, res *Result) (transform.Operation, []pending, error) {
	kind := network.Straight
	if op.Kind != "" {
		k, err := network.ParseKind(op.Kind)
		if err != nil {
			return nil, nil, err
		}
		kind = k
	}
	v := func(ref string) (int64, error) { return lookup(res.Vertices, "vertex", ref) }
	t := func(ref string) (int64, error) { return lookup(res.Tracks, "track", ref) }
	vref := func(p **network.Vertex) []pending {
		if op.Ref == "" {
			return nil
		}
		return []pending{{ref: op.Ref, vertex: p}}
	}
	tref := func(p **network.Track) []pending {
		if op.TrackRef == "" {
			return nil
		}
		return []pending{{ref: op.TrackRef, track: p}}
	}

	switch op.Type {
	case OpVertex:
		o := &transform.AddVertex{X: op.X, Y: op.Y}
		return o, vref(&o.Vertex), nil
	case OpExtend:
		from, err := v(op.From)
		if err != nil {
			return nil, nil, err
		}
		o := &transform.ExtendTrack{VertexID: from, X: op.X, Y: op.Y, Kind: kind}
		return o, append(vref(&o.Vertex), tref(&o.Track)...), nil
	case OpConnect:
		a, err := v(op.From)
		if err != nil {
			return nil, nil, err
		}
		b, err := v(op.To)
		if err != nil {
			return nil, nil, err
		}
		o := &transform.ConnectVertices{A: a, B: b, Kind: kind}
		return o, tref(&o.Track), nil
	case OpSplit:
		id, err := t(op.Track)
		if err != nil {
			return nil, nil, err
		}
		o := &transform.SplitTrack{TrackID: id, At: op.At}
		return o, append(vref(&o.Vertex), tref(&o.Track)...), nil
	case OpJoin:
		id, err := v(op.Vertex)
		if err != nil {
			return nil, nil, err
		}
		o := &transform.JoinTracks{VertexID: id}
		return o, tref(&o.Track), nil
	case OpMove:
		ids := make([]int64, len(op.Vertices))
		for i, ref := range op.Vertices {
			id, err := v(ref)
			if err != nil {
				return nil, nil, err
			}
			ids[i] = id
		}
		return &transform.MoveVertices{IDs: ids, DX: op.DX, DY: op.DY}, nil, nil
	case OpStop:
		id, err := t(op.Track)
		if err != nil {
			return nil, nil, err
		}
		stop := network.TrackObject{Name: op.Name, Position: op.At, Orientation: byte(op.Orientation)}
		return &transform.AttachStop{TrackID: id, Stop: stop}, nil, nil
	case OpUnstop:
		id, err := t(op.Track)
		if err != nil {
			return nil, nil, err
		}
		return &transform.RemoveStop{TrackID: id, StopName: op.Name}, nil, nil
	case OpDeleteVertex:
		id, err := v(op.Vertex)
		if err != nil {
			return nil, nil, err
		}
		return &transform.DeleteVertex{ID: id}, nil, nil
	case OpDeleteTrack:
		id, err := t(op.Track)
		if err != nil {
			return nil, nil, err
		}
		return &transform.DeleteTrack{ID: id}, nil, nil
	}
	return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown operation type %q", op.Type)
}

func lookup(m map[string]int64, what, ref string) (int64, error) {
	id, ok := m[ref]
	if !ok {
		return network.NoID, errors.New(errors.ErrCodeNotFound, "%s ref %q is not defined", what, ref)
	}
	return id, nil
}

func resizeWorld(w *world.World, op Op) error {
	d, err := world.ParseDirection(op.Direction)
	if err != nil {
		return err
	}
	horizontal := d == world.West || d == world.East
	switch {
	case op.Type == OpExtendWorld && horizontal:
		return w.ExtendHorizontally(d)
	case op.Type == OpExtendWorld:
		return w.ExtendVertically(d)
	case horizontal:
		return w.ShrinkHorizontally(d)
	default:
		return w.ShrinkVertically(d)
	}
}
