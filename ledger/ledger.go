package ledger

import (
	"maps"

	"github.com/poiesic/docchat/core"
)

// Ledger maps the fingerprint of every ingested file to the absolute path it
// was last seen at. A fingerprint appears at most once.
type Ledger map[core.Fingerprint]string

// New returns an empty ledger.
func New() Ledger {
	return make(Ledger)
}

// Has reports whether fp was already ingested.
func (l Ledger) Has(fp core.Fingerprint) bool {
	_, ok := l[fp]
	return ok
}

// Record stores path for fp and reports whether the ledger changed.
func (l Ledger) Record(fp core.Fingerprint, path string) bool {
	if old, ok := l[fp]; ok && old == path {
		return false
	}
	l[fp] = path
	return true
}

// Clone returns an independent copy of l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	maps.Copy(out, l)
	return out
}

// Equal reports whether l and other hold the same entries.
func (l Ledger) Equal(other Ledger) bool {
	return maps.Equal(l, other)
}
