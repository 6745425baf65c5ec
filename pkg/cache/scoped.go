package cache

// ScopedKeyer wraps a Keyer with a prefix so that several servers can share
// one backend.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "depot:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ScriptKey generates a prefixed script artifact key.
func (k *ScopedKeyer) ScriptKey(scriptHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ScriptKey(scriptHash, opts)
}

// SnapshotKey generates a prefixed snapshot key.
func (k *ScopedKeyer) SnapshotKey(revision uint64, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.SnapshotKey(revision, opts)
}
