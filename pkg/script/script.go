package script

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/trackyard/trackyard/pkg/errors"
	"github.com/trackyard/trackyard/pkg/network"
	"github.com/trackyard/trackyard/pkg/world"
)

// Operation types.
const (
	OpVertex       = "vertex"
	OpExtend       = "extend"
	OpConnect      = "connect"
	OpSplit        = "split"
	OpJoin         = "join"
	OpMove         = "move"
	OpStop         = "stop"
	OpUnstop       = "unstop"
	OpDeleteVertex = "delete-vertex"
	OpDeleteTrack  = "delete-track"
	OpExtendWorld  = "extend-world"
	OpShrinkWorld  = "shrink-world"
)

// Script is a parsed edit-intent script.
type Script struct {
	Name  string    `toml:"name"`
	World WorldSpec `toml:"world"`
	Steps []Step    `toml:"step"`
}

// WorldSpec sizes the initial segment grid.
type WorldSpec struct {
	Width       int              `toml:"width"`
	Height      int              `toml:"height"`
	Backgrounds []BackgroundSpec `toml:"background"`
}

// BackgroundSpec assigns a bitmap to one segment.
type BackgroundSpec struct {
	X    int    `toml:"x"`
	Y    int    `toml:"y"`
	Path string `toml:"path"`
}

// Step is one edit gesture.
type Step struct {
	Name string `toml:"name"`
	Ops  []Op   `toml:"op"`
}

// Op is one operation. Which fields apply depends on Type.
type Op struct {
	Type string `toml:"type"`

	// Ref names the vertex the operation creates; TrackRef names the track.
	Ref      string `toml:"ref"`
	TrackRef string `toml:"track_ref"`

	From     string   `toml:"from"`
	To       string   `toml:"to"`
	Vertex   string   `toml:"vertex"`
	Vertices []string `toml:"vertices"`
	Track    string   `toml:"track"`

	X  float64 `toml:"x"`
	Y  float64 `toml:"y"`
	DX float64 `toml:"dx"`
	DY float64 `toml:"dy"`
	At float64 `toml:"at"`

	Kind        string `toml:"kind"`
	Name        string `toml:"name"`
	Orientation int    `toml:"orientation"`
	Direction   string `toml:"direction"`
}

// Load reads and parses a script file.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read script %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a script. Unknown keys are rejected.
func Parse(data []byte) (*Script, error) {
	var s Script
	md, err := toml.Decode(string(data), &s)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse script")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown script keys: %s", strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the script without running it: world size, operation
// types, reference names and that every reference is created before it is
// used.
func (s *Script) Validate() error {
	if s.World.Width < 1 || s.World.Height < 1 {
		return errors.New(errors.ErrCodeInvalidInput, "world must be at least 1x1, got %dx%d", s.World.Width, s.World.Height)
	}
	for _, b := range s.World.Backgrounds {
		if err := errors.ValidatePath(b.Path); err != nil {
			return err
		}
	}

	vertices, tracks := map[string]bool{}, map[string]bool{}
	for i, step := range s.Steps {
		if err := step.check(i+1, vertices, tracks); err != nil {
			return err
		}
	}
	return nil
}

// check validates one step against the refs defined before it and adds the
// refs it creates to vertices and tracks.
func (step Step) check(n int, vertices, tracks map[string]bool) error {
	createdV, createdT := map[string]bool{}, map[string]bool{}
	for j, op := range step.Ops {
		if err := op.validate(vertices, tracks); err != nil {
			return fmt.Errorf("step %d op %d (%s): %w", n, j+1, op.Type, err)
		}
		for _, ref := range op.createsVertex() {
			if vertices[ref] || createdV[ref] {
				return errors.New(errors.ErrCodeInvalidInput, "step %d: vertex ref %q defined twice", n, ref)
			}
			createdV[ref] = true
		}
		if ref := op.createsTrack(); ref != "" {
			if tracks[ref] || createdT[ref] {
				return errors.New(errors.ErrCodeInvalidInput, "step %d: track ref %q defined twice", n, ref)
			}
			createdT[ref] = true
		}
	}
	for ref := range createdV {
		vertices[ref] = true
	}
	for ref := range createdT {
		tracks[ref] = true
	}
	return nil
}

// ParseStep decodes a single step, the body format accepted by a running
// server. Unknown keys are rejected; references are checked when the step
// is applied.
func ParseStep(data []byte) (*Step, error) {
	var step Step
	md, err := toml.Decode(string(data), &step)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse step")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown step keys: %s", strings.Join(keys, ", "))
	}
	if len(step.Ops) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "step has no operations")
	}
	return &step, nil
}

func (op Op) validate(vertices, tracks map[string]bool) error {
	needV := func(refs ...string) error {
		for _, r := range refs {
			if err := errors.ValidateRef(r); err != nil {
				return err
			}
			if !vertices[r] {
				return errors.New(errors.ErrCodeInvalidInput, "vertex ref %q is not defined in an earlier step", r)
			}
		}
		return nil
	}
	needT := func(r string) error {
		if err := errors.ValidateRef(r); err != nil {
			return err
		}
		if !tracks[r] {
			return errors.New(errors.ErrCodeInvalidInput, "track ref %q is not defined in an earlier step", r)
		}
		return nil
	}
	for _, r := range append(op.createsVertex(), op.createsTrack()) {
		if r == "" {
			continue
		}
		if err := errors.ValidateRef(r); err != nil {
			return err
		}
	}
	if op.Kind != "" {
		if _, err := network.ParseKind(op.Kind); err != nil {
			return err
		}
	}

	switch op.Type {
	case OpVertex:
		return errors.ValidateFinite(op.X, op.Y)
	case OpExtend:
		if err := needV(op.From); err != nil {
			return err
		}
		return errors.ValidateFinite(op.X, op.Y)
	case OpConnect:
		return needV(op.From, op.To)
	case OpSplit:
		if err := needT(op.Track); err != nil {
			return err
		}
		return errors.ValidateFraction(op.At)
	case OpJoin, OpDeleteVertex:
		return needV(op.Vertex)
	case OpMove:
		if len(op.Vertices) == 0 {
			return errors.New(errors.ErrCodeInvalidInput, "move needs at least one vertex")
		}
		if err := needV(op.Vertices...); err != nil {
			return err
		}
		return errors.ValidateFinite(op.DX, op.DY)
	case OpStop:
		if err := needT(op.Track); err != nil {
			return err
		}
		if op.Name == "" {
			return errors.New(errors.ErrCodeInvalidInput, "stop needs a name")
		}
		if op.Orientation < 0 || op.Orientation > 255 {
			return errors.New(errors.ErrCodeInvalidInput, "orientation %d out of range", op.Orientation)
		}
		return errors.ValidateFraction(op.At)
	case OpUnstop:
		return needT(op.Track)
	case OpDeleteTrack:
		return needT(op.Track)
	case OpExtendWorld, OpShrinkWorld:
		_, err := world.ParseDirection(op.Direction)
		return err
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown operation type %q", op.Type)
}

func (op Op) createsVertex() []string {
	switch op.Type {
	case OpVertex, OpExtend, OpSplit:
		if op.Ref != "" {
			return []string{op.Ref}
		}
	}
	return nil
}

func (op Op) createsTrack() string {
	switch op.Type {
	case OpExtend, OpConnect, OpSplit, OpJoin:
		return op.TrackRef
	}
	return ""
}

// NewGraph creates an empty graph over the script's world.
func (s *Script) NewGraph() (*network.Graph, error) {
	w, err := world.New(s.World.Width, s.World.Height)
	if err != nil {
		return nil, err
	}
	for _, b := range s.World.Backgrounds {
		if err := w.SetBackground(b.X, b.Y, b.Path); err != nil {
			return nil, err
		}
	}
	return network.New(w), nil
}
