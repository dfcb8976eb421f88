package order

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	cartx "github.com/tanpawarit/Chative-Voice-Tools/agent/cart"
	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
)

const idPrefix = "order-"

type Order struct {
	ID        string       `json:"id"`
	Items     []cartx.Line `json:"items"`
	Total     int          `json:"total"`
	Currency  string       `json:"currency"`
	CreatedAt string       `json:"created_at"`
}

func (o Order) RecordID() string {
	return o.ID
}

// ItemCount is the number of units across all lines.
func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// Seq extracts the numeric part of an order id. Ids compare by Seq, not lexically.
func Seq(id string) (int, bool) {
	raw, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

type Option func(*Ledger)

func WithCurrency(currency string) Option {
	return func(l *Ledger) {
		if c := strings.TrimSpace(currency); c != "" {
			l.currency = c
		}
	}
}

func WithPublisher(p contractx.Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger is the append-only order sequence shared by every session of a process.
type Ledger struct {
	store     *recordx.Store
	key       recordx.Key
	currency  string
	publisher contractx.Publisher
	now       func() time.Time

	mu     sync.RWMutex
	orders []Order
}

func NewLedger(ctx context.Context, store *recordx.Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}

	l := &Ledger{
		store:    store,
		key:      recordx.KeyFor(contractx.KindOrders),
		currency: catalogx.DefaultCurrency,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	loaded, err := recordx.Load[Order](ctx, store, l.key)
	if err != nil {
		return nil, err
	}
	l.orders = loaded
	return l, nil
}

// FinalizeFromCart turns the cart into a new order. The orders lock is taken before
// the cart lock; the append and the cart clear happen inside both.
func (l *Ledger) FinalizeFromCart(ctx context.Context, c *cartx.Manager) (Order, error) {
	if c == nil {
		return Order{}, errors.New("cart is required")
	}

	unlock, err := l.store.Lock(ctx, l.key)
	if err != nil {
		return Order{}, err
	}
	defer unlock()

	var created Order
	err = c.Checkout(ctx, func(lines []cartx.Line) error {
		if len(lines) == 0 {
			return fmt.Errorf("%w: nothing to order", contractx.ErrEmptyCart)
		}

		l.mu.Lock()
		created = Order{
			ID:        fmt.Sprintf("%s%d", idPrefix, l.nextSeq()),
			Items:     lines,
			Total:     cartx.Total(lines),
			Currency:  l.currency,
			CreatedAt: l.now().UTC().Format(time.RFC3339Nano),
		}
		l.orders = append(l.orders, created)
		snapshot := cloneOrders(l.orders)
		l.mu.Unlock()

		if err := recordx.Save(ctx, l.store, l.key, snapshot); err != nil {
			log.Error().Err(err).Str("order_id", created.ID).Msg("orders save failed, in-memory ledger kept")
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	log.Info().Str("order_id", created.ID).Int("units", created.ItemCount()).Int("total", created.Total).Str("currency", created.Currency).Msg("order created")
	l.publish(ctx, created)
	return created, nil
}

// nextSeq is count+1, bumped past the last id when a hand-edited ledger has gaps.
// Callers hold l.mu.
func (l *Ledger) nextSeq() int {
	next := len(l.orders) + 1
	if n := len(l.orders); n > 0 {
		if last, ok := Seq(l.orders[n-1].ID); ok && last >= next {
			next = last + 1
		}
	}
	return next
}

// Latest returns the most recently appended order.
func (l *Ledger) Latest() (Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.orders) == 0 {
		return Order{}, false
	}
	return cloneOrder(l.orders[len(l.orders)-1]), true
}

func (l *Ledger) All() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneOrders(l.orders)
}

func (l *Ledger) Currency() string {
	return l.currency
}

func (l *Ledger) publish(ctx context.Context, o Order) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, contractx.KindOrders, o); err != nil {
		log.Warn().Err(err).Str("order_id", o.ID).Msg("order notification failed")
	}
}

func cloneOrder(o Order) Order {
	items := make([]cartx.Line, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func cloneOrders(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = cloneOrder(o)
	}
	return out
}
