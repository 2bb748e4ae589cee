package kinematics

import (
	"context"
	"errors"
	"sync"

	"github.com/govsdm/govsdm/basis"
	"github.com/govsdm/govsdm/types"
)

// Store is a second cache level that outlives the process.
type Store interface {
	Load(key uint64) (data []float64, ok bool, err error)
	Save(key uint64, data []float64) error
	Delete(key uint64) error
	Close() error
}

// Cache owns computed kinematic matrices keyed by the fingerprint of their
// inputs. Changing a basis, lMax, the Model or the quadrature options gives a
// new key, so a stale matrix is never returned. Only converged matrices are
// cached.
type Cache struct {
	Opts  *Options
	Store Store // optional

	mu      sync.Mutex
	entries map[uint64]*McalI
	hits    int
	misses  int
}

func NewCache(opts *Options, store Store) *Cache {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Cache{
		Opts:    opts,
		Store:   store,
		entries: make(map[uint64]*McalI),
	}
}

// Get returns the cached matrix for the inputs, loading it from the Store or
// computing it when absent.
func (c *Cache) Get(ctx context.Context, vB, qB basis.Basis, lMax int, model Model) (mi *McalI, err error) {
	if err = checkInputs(vB, qB, lMax, model); err != nil {
		return
	}
	key := Fingerprint(vB, qB, lMax, model, c.Opts)
	c.mu.Lock()
	if mi = c.entries[key]; mi != nil {
		c.hits++
		c.mu.Unlock()
		return
	}
	c.misses++
	c.mu.Unlock()

	if c.Store != nil {
		var (
			data []float64
			ok   bool
		)
		if data, ok, err = c.Store.Load(key); err != nil {
			return nil, err
		}
		if ok && len(data) == (lMax+1)*vB.NMax()*qB.NMax() {
			mi = &McalI{
				VBasis:    vB,
				QBasis:    qB,
				LMax:      lMax,
				Model:     model,
				Converged: true,
				data:      data,
				key:       key,
			}
			c.put(key, mi)
			return
		}
	}

	if mi, err = NewMcalI(ctx, vB, qB, lMax, model, c.Opts); err != nil {
		var cw *types.ConvergenceWarning
		if !errors.As(err, &cw) {
			return nil, err
		}
		return
	}
	c.put(key, mi)
	if c.Store != nil {
		if err = c.Store.Save(key, mi.data); err != nil {
			return mi, err
		}
	}
	return
}

func (c *Cache) put(key uint64, mi *McalI) {
	c.mu.Lock()
	c.entries[key] = mi
	c.mu.Unlock()
}

// Invalidate drops the matrix for the inputs from both cache levels.
func (c *Cache) Invalidate(vB, qB basis.Basis, lMax int, model Model) error {
	key := Fingerprint(vB, qB, lMax, model, c.Opts)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.Store != nil {
		return c.Store.Delete(key)
	}
	return nil
}

// Purge empties the in-memory level.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[uint64]*McalI)
	c.mu.Unlock()
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
