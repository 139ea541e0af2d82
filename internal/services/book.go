package services

import (
	"errors"
	"sync"

	"github.com/finexa/fxarb/internal/models"
)

var (
	// ErrOpportunityNotFound is returned for unknown opportunity ids.
	ErrOpportunityNotFound = errors.New("opportunity not found")
	// ErrAlreadyExecuted is returned when execution is attempted on an
	// opportunity whose executed flag is already set.
	ErrAlreadyExecuted = errors.New("opportunity already executed")
)

// Book owns the live ranked opportunity list shared between the scheduler
// loop and request handlers. All reads hand out deep copies, and the
// executed flag can only be flipped through Claim, an atomic check-and-set.
// That replaces the bare shared mutable list the design notes warn about.
type Book struct {
	mu      sync.RWMutex
	ranked  []*models.ArbitrageOpportunity
	version uint64
}

func NewBook() *Book {
	return &Book{}
}

// Replace installs a freshly ranked list. Entries of the previous list that
// were already executed keep their state when the same id reappears; in
// practice detection generates new ids each cycle, so the executed flag
// protects within-cycle double execution.
func (b *Book) Replace(opportunities []*models.ArbitrageOpportunity) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prev := make(map[string]*models.ArbitrageOpportunity, len(b.ranked))
	for _, opp := range b.ranked {
		prev[opp.ID] = opp
	}
	next := make([]*models.ArbitrageOpportunity, 0, len(opportunities))
	for _, opp := range opportunities {
		if old, ok := prev[opp.ID]; ok && old.Executed {
			next = append(next, old)
			continue
		}
		next = append(next, opp.Clone())
	}
	b.ranked = next
	b.version++
}

// Snapshot returns a deep copy of the current ranked list. Callers get an
// eventually-consistent view; the loop may replace the list at any time.
func (b *Book) Snapshot() []*models.ArbitrageOpportunity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.ArbitrageOpportunity, len(b.ranked))
	for i, opp := range b.ranked {
		out[i] = opp.Clone()
	}
	return out
}

// Version increments on every Replace.
func (b *Book) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// Get returns a copy of the opportunity with the given id.
func (b *Book) Get(id string) (*models.ArbitrageOpportunity, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, opp := range b.ranked {
		if opp.ID == id {
			return opp.Clone(), nil
		}
	}
	return nil, ErrOpportunityNotFound
}

// Claim atomically marks the opportunity executed and returns a copy of its
// pre-claim state. A second Claim on the same id fails with
// ErrAlreadyExecuted; this is the idempotency guard every execution path
// relies on.
func (b *Book) Claim(id string) (*models.ArbitrageOpportunity, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, opp := range b.ranked {
		if opp.ID != id {
			continue
		}
		if opp.Executed {
			return nil, ErrAlreadyExecuted
		}
		opp.Executed = true
		return opp.Clone(), nil
	}
	return nil, ErrOpportunityNotFound
}

// Release undoes a Claim that could not be followed through (for example
// when the advisor decided to skip after the claim was taken).
func (b *Book) Release(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, opp := range b.ranked {
		if opp.ID == id && opp.ExecutionDetails == nil {
			opp.Executed = false
			return
		}
	}
}

// SetDetails attaches the execution payload to a claimed opportunity. It is
// a no-op if details were already set; the first execution wins.
func (b *Book) SetDetails(id string, details *models.ExecutionDetails) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, opp := range b.ranked {
		if opp.ID == id && opp.ExecutionDetails == nil {
			d := *details
			opp.ExecutionDetails = &d
			return
		}
	}
}
