package cache

// ScopedKeyer wraps a Keyer with a prefix so that several deployments can
// share one Redis without colliding.
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "rankbars:prod:")
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

// SnapshotKey generates a prefixed snapshot key.
func (k *ScopedKeyer) SnapshotKey(source string, year int) string {
	return k.prefix + k.inner.SnapshotKey(source, year)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(snapshotHash, opts)
}
