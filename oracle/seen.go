package oracle

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/bobg/strand"
)

// Seen is a concurrency-safe set of fingerprints anchored through this
// process, each mapped to the address it was stored at.
// It is populated only by successful stores within the current process
// lifetime and is an optimization only, never a correctness source:
// a freshly started process has an empty Seen and knows nothing about
// strings anchored in prior sessions.
// That staleness is an accepted trade-off.
type Seen struct {
	c *lru.Cache // Fingerprint -> Address
}

// NewSeen produces a Seen retaining up to `size` fingerprints.
func NewSeen(size int) (*Seen, error) {
	c, err := lru.New(size)
	return &Seen{c: c}, err
}

// Add records that a string with the given fingerprint
// was stored at the given address.
func (s *Seen) Add(fp strand.Fingerprint, addr strand.Address) {
	s.c.Add(fp, addr)
}

// Lookup reports whether the fingerprint was seen this session,
// and at which address.
func (s *Seen) Lookup(fp strand.Fingerprint) (strand.Address, bool) {
	got, ok := s.c.Get(fp)
	if !ok {
		return strand.ZeroAddress, false
	}
	return got.(strand.Address), true
}

// Len is the number of fingerprints currently retained.
func (s *Seen) Len() int {
	return s.c.Len()
}
