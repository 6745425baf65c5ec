package transform

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/observability"
)

// Operation is a complete edit applied through a unit of work.
type Operation interface {
	Apply(uow *UnitOfWork) error
}

// UnitOfWork is one edit session over a graph. It owns a single editable
// graph and memoizes imported elements by ID.
type UnitOfWork struct {
	id       uuid.UUID
	graph    *network.Graph
	edit     *network.EditableGraph
	vertices map[int64]*network.Vertex
	tracks   map[int64]*network.Track
	logger   *log.Logger
	closed   bool

	// rejected counts moves refused by the legality check.
	rejected int
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithLogger sets the logger used for operation and commit messages.
func WithLogger(l *log.Logger) Option {
	return func(u *UnitOfWork) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUnitOfWork opens an edit session on g.
func NewUnitOfWork(g *network.Graph, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		id:       uuid.New(),
		graph:    g,
		edit:     g.Edit(),
		vertices: make(map[int64]*network.Vertex),
		tracks:   make(map[int64]*network.Track),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ID returns the session ID.
func (u *UnitOfWork) ID() uuid.UUID { return u.id }

// Graph returns the authoritative graph.
func (u *UnitOfWork) Graph() *network.Graph { return u.graph }

// Edit returns the editable graph of the session.
func (u *UnitOfWork) Edit() *network.EditableGraph { return u.edit }

// Logger returns the session logger.
func (u *UnitOfWork) Logger() *log.Logger { return u.logger }

// ImportVertex returns the working copy of vertex id, forking it with its
// adjacent tracks on first use. Later calls return the same record.
func (u *UnitOfWork) ImportVertex(id int64) (*network.Vertex, error) {
	if v, ok := u.vertices[id]; ok {
		return v, nil
	}
	if err := u.open(); err != nil {
		return nil, err
	}
	auth := u.graph.Vertex(id)
	if auth == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "vertex %d not found", id)
	}
	v, err := u.edit.Fork(auth)
	if err != nil {
		return nil, err
	}
	u.vertices[id] = v
	for _, t := range v.Tracks() {
		u.tracks[t.ID()] = t
	}
	return v, nil
}

// ImportTrack returns the working copy of track id, forking it on first use.
// Its ends stay ghosts until imported. Later calls return the same record.
func (u *UnitOfWork) ImportTrack(id int64) (*network.Track, error) {
	if t, ok := u.tracks[id]; ok {
		return t, nil
	}
	if err := u.open(); err != nil {
		return nil, err
	}
	auth := u.graph.Track(id)
	if auth == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "track %d not found", id)
	}
	t, err := u.edit.ForkTrack(auth)
	if err != nil {
		return nil, err
	}
	u.tracks[id] = t
	return t, nil
}

// Materialize returns the working record behind v, forking ghosts and
// memoizing the result.
func (u *UnitOfWork) Materialize(v *network.Vertex) (*network.Vertex, error) {
	if v == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "nil vertex")
	}
	if !v.IsGhost() && u.edit.Contains(v) {
		return v, nil
	}
	return u.ImportVertex(v.ID())
}

// Apply runs ops in order and stops at the first error. Elements edited
// before the failure stay in the session; callers usually Discard it.
func (u *UnitOfWork) Apply(ctx context.Context, ops ...Operation) error {
	if err := u.open(); err != nil {
		return err
	}
	for _, op := range ops {
		name := operationName(op)
		start := time.Now()
		err := op.Apply(u)
		observability.Edit().OnOperation(ctx, u.id.String(), name, time.Since(start), err)
		if err != nil {
			u.logger.Debug("operation failed", "session", u.id, "op", name, "err", err)
			return fmt.Errorf("%s: %w", name, err)
		}
		if m, ok := op.(*MoveVertices); ok && !m.Moved {
			u.moveRejected(ctx, len(m.IDs))
			u.logger.Debug("move rejected", "session", u.id, "vertices", m.IDs)
			continue
		}
		u.logger.Debug("operation applied", "session", u.id, "op", name)
	}
	return nil
}

func (u *UnitOfWork) moveRejected(ctx context.Context, n int) {
	u.rejected++
	observability.Edit().OnMoveRejected(ctx, u.id.String(), n)
}

// Rejected returns the number of moves refused during the session.
func (u *UnitOfWork) Rejected() int { return u.rejected }

// Commit synchronizes the session into the graph and closes it.
func (u *UnitOfWork) Commit(ctx context.Context) (network.Changes, error) {
	if err := u.open(); err != nil {
		return network.Changes{}, err
	}
	if err := ctx.Err(); err != nil {
		return network.Changes{}, err
	}
	start := time.Now()
	ch, err := u.graph.SynchronizeWith(u.edit)
	elapsed := time.Since(start)
	observability.Edit().OnCommit(ctx, u.id.String(),
		len(ch.AddedVertices)+len(ch.AddedTracks),
		len(ch.UpdatedVertices)+len(ch.UpdatedTracks),
		len(ch.DeletedVertices)+len(ch.DeletedTracks),
		elapsed, err)
	if err != nil {
		u.logger.Error("commit failed", "session", u.id, "err", err)
		return network.Changes{}, err
	}
	u.closed = true
	u.logger.Info("committed", "session", u.id, "changes", ch.String(), "took", elapsed.Round(time.Microsecond))
	return ch, nil
}

// Discard closes the session without committing.
func (u *UnitOfWork) Discard() {
	if !u.closed {
		u.logger.Debug("discarded", "session", u.id)
	}
	u.closed = true
}

func (u *UnitOfWork) open() error {
	if u.closed {
		return errors.Precondition("unit of work %s is closed", u.id)
	}
	return nil
}

type named interface{ Name() string }

func operationName(op Operation) string {
	if n, ok := op.(named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", op)
}
