package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
)

// Line is one cart entry. Name and Price are copied from the catalog when the
// line is added and never follow later catalog changes.
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
}

func (l Line) Subtotal() int {
	return l.Price * l.Quantity
}

// Total is the exact sum of price*quantity over lines.
func Total(lines []Line) int {
	total := 0
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

type Option func(*Manager)

// WithStrictSizes rejects sizes the catalog item does not offer.
func WithStrictSizes(strict bool) Option {
	return func(m *Manager) {
		m.strictSizes = strict
	}
}

// Manager owns one session's cart. Mutations hold the store lock for the cart key
// for the whole mutate-then-persist sequence.
type Manager struct {
	store       *recordx.Store
	catalog     *catalogx.Catalog
	key         recordx.Key
	strictSizes bool

	mu    sync.RWMutex
	lines []Line
}

// New restores the cart persisted under scope, or starts empty.
func New(ctx context.Context, store *recordx.Store, catalog *catalogx.Catalog, scope string, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	m := &Manager{
		store:       store,
		catalog:     catalog,
		key:         recordx.ScopedKey(contractx.KindCart, scope),
		strictSizes: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	loaded, err := recordx.Load[Line](ctx, store, m.key)
	if err != nil {
		return nil, err
	}
	m.lines = loaded
	return m, nil
}

// Add appends a line for productID. quantity < 1 is rejected; callers apply the default of 1.
func (m *Manager) Add(ctx context.Context, productID, size string, quantity int) (Line, error) {
	productID = strings.TrimSpace(productID)
	item, ok := m.catalog.Get(productID)
	if !ok {
		return Line{}, fmt.Errorf("%w: product %q", contractx.ErrNotFound, productID)
	}

	size = strings.TrimSpace(size)
	if size == "" {
		return Line{}, fmt.Errorf("%w: size is required", contractx.ErrInvalidArgument)
	}
	if m.strictSizes {
		canonical, ok := item.HasSize(size)
		if !ok {
			return Line{}, fmt.Errorf("%w: size %q is not available for %s (available: %s)",
				contractx.ErrInvalidArgument, size, item.Name, strings.Join(item.Sizes, ", "))
		}
		size = canonical
	}
	if quantity < 1 {
		return Line{}, fmt.Errorf("%w: quantity must be at least 1, got %d", contractx.ErrInvalidArgument, quantity)
	}

	unlock, err := m.store.Lock(ctx, m.key)
	if err != nil {
		return Line{}, err
	}
	defer unlock()

	line := Line{
		ProductID: item.ID,
		Name:      item.Name,
		Size:      size,
		Quantity:  quantity,
		Price:     item.Price,
	}

	m.mu.Lock()
	m.lines = append(m.lines, line)
	snapshot := cloneLines(m.lines)
	m.mu.Unlock()

	m.persist(ctx, snapshot)
	return line, nil
}

// Snapshot returns the lines in insertion order.
func (m *Manager) Snapshot() []Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneLines(m.lines)
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.lines)
}

// Clear empties the cart and persists the empty cart.
func (m *Manager) Clear(ctx context.Context) error {
	unlock, err := m.store.Lock(ctx, m.key)
	if err != nil {
		return err
	}
	defer unlock()

	m.clearLocked(ctx)
	return nil
}

// Checkout hands a copy of the lines to fn while holding the cart lock and clears
// the cart only if fn succeeds, so no reader sees fn's effect without the clear.
func (m *Manager) Checkout(ctx context.Context, fn func(lines []Line) error) error {
	unlock, err := m.store.Lock(ctx, m.key)
	if err != nil {
		return err
	}
	defer unlock()

	if err := fn(m.Snapshot()); err != nil {
		return err
	}
	m.clearLocked(ctx)
	return nil
}

func (m *Manager) clearLocked(ctx context.Context) {
	m.mu.Lock()
	m.lines = []Line{}
	m.mu.Unlock()
	m.persist(ctx, []Line{})
}

func (m *Manager) persist(ctx context.Context, lines []Line) {
	if err := recordx.Save(ctx, m.store, m.key, lines); err != nil {
		log.Error().Err(err).Str("key", m.key.Name()).Int("lines", len(lines)).Msg("cart save failed, in-memory cart kept")
	}
}

func cloneLines(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
