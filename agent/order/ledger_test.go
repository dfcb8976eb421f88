package order

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	cartx "github.com/tanpawarit/Chative-Voice-Tools/agent/cart"
	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
)

type fakePublisher struct {
	mu   sync.Mutex
	sent []any
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, kind contractx.RecordKind, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if kind != contractx.KindOrders {
		return errors.New("unexpected kind")
	}
	p.sent = append(p.sent, payload)
	return p.err
}

type fixture struct {
	store   *recordx.Store
	backend *recordx.FileBackend
	catalog *catalogx.Catalog
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	backend, err := recordx.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	store, err := recordx.NewStore(backend)
	require.NoError(t, err)
	return fixture{store: store, backend: backend, catalog: catalogx.New(catalogx.DefaultItems())}
}

func (f fixture) cart(t *testing.T, scope string) *cartx.Manager {
	t.Helper()
	c, err := cartx.New(context.Background(), f.store, f.catalog, scope)
	require.NoError(t, err)
	return c
}

func (f fixture) ledger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	l, err := NewLedger(context.Background(), f.store, opts...)
	require.NoError(t, err)
	return l
}

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("IST", 5*3600+1800))
}

func TestFinalizeFromCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	pub := &fakePublisher{}
	ledger := f.ledger(t, WithClock(fixedClock), WithPublisher(pub))
	c := f.cart(t, "s1")

	ctx := context.Background()
	_, err := c.Add(ctx, "hoodie-001", "M", 1)
	require.NoError(t, err)
	_, err = c.Add(ctx, "tshirt-001", "L", 2)
	require.NoError(t, err)

	order, err := ledger.FinalizeFromCart(ctx, c)
	require.NoError(t, err)
	require.Equal(t, "order-1", order.ID)
	require.Equal(t, 4200, order.Total)
	require.Equal(t, "INR", order.Currency)
	require.Equal(t, "2026-03-14T03:56:53Z", order.CreatedAt)
	require.Equal(t, 3, order.ItemCount())
	require.Zero(t, c.Len())
	require.Len(t, pub.sent, 1)

	latest, ok := ledger.Latest()
	require.True(t, ok)
	require.Equal(t, order, latest)

	_, err = c.Add(ctx, "jeans-001", "S", 1)
	require.NoError(t, err)
	second, err := ledger.FinalizeFromCart(ctx, c)
	require.NoError(t, err)
	require.Equal(t, "order-2", second.ID)

	firstSeq, _ := Seq(order.ID)
	secondSeq, _ := Seq(second.ID)
	require.Greater(t, secondSeq, firstSeq)
}

func TestFinalizeEmptyCartLeavesLedgerUnchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ledger := f.ledger(t)
	c := f.cart(t, "s1")

	_, err := ledger.FinalizeFromCart(context.Background(), c)
	require.ErrorIs(t, err, contractx.ErrEmptyCart)
	require.Empty(t, ledger.All())
	_, ok := ledger.Latest()
	require.False(t, ok)

	_, statErr := os.Stat(f.backend.Path(recordx.KeyFor(contractx.KindOrders)))
	require.True(t, os.IsNotExist(statErr), "empty-cart finalize must not write orders")
}

func TestLedgerReloadsAndContinuesSequence(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	c := f.cart(t, "")

	first := f.ledger(t)
	_, err := c.Add(ctx, "shoes-001", "S", 1)
	require.NoError(t, err)
	_, err = first.FinalizeFromCart(ctx, c)
	require.NoError(t, err)

	reloaded := f.ledger(t)
	require.Equal(t, first.All(), reloaded.All())

	_, err = c.Add(ctx, "shoes-001", "M", 1)
	require.NoError(t, err)
	next, err := reloaded.FinalizeFromCart(ctx, c)
	require.NoError(t, err)
	require.Equal(t, "order-2", next.ID)
}

func TestLedgerCorruptFileStartsEmpty(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.backend.Path(recordx.KeyFor(contractx.KindOrders)), []byte("{{{"), 0o644))

	ledger := f.ledger(t)
	require.Empty(t, ledger.All())
}

func TestPublisherFailureDoesNotFailOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ledger := f.ledger(t, WithPublisher(&fakePublisher{err: errors.New("qstash down")}))
	c := f.cart(t, "s1")
	_, err := c.Add(context.Background(), "hoodie-001", "S", 1)
	require.NoError(t, err)

	_, err = ledger.FinalizeFromCart(context.Background(), c)
	require.NoError(t, err)
}

func TestConcurrentSessionsGetDistinctIDs(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ledger := f.ledger(t)
	ctx := context.Background()

	const sessions = 8
	ids := make(chan string, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		c := f.cart(t, string(rune('a'+i)))
		_, err := c.Add(ctx, "tshirt-001", "M", 1)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := ledger.FinalizeFromCart(ctx, c)
			if err == nil {
				ids <- o.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, sessions)
	require.Len(t, f.ledger(t).All(), sessions)
}

func TestSeq(t *testing.T) {
	t.Parallel()

	n, ok := Seq("order-12")
	require.True(t, ok)
	require.Equal(t, 12, n)

	for _, bad := range []string{"order-", "order-x", "ord-1", "order-0"} {
		_, ok := Seq(bad)
		require.False(t, ok, bad)
	}
}

func TestNextIDSkipsPastGaps(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	key := recordx.KeyFor(contractx.KindOrders)
	require.NoError(t, recordx.Save(ctx, f.store, key, []Order{{ID: "order-1"}, {ID: "order-7"}}))

	ledger := f.ledger(t)
	c := f.cart(t, "")
	_, err := c.Add(ctx, "tshirt-001", "M", 1)
	require.NoError(t, err)

	order, err := ledger.FinalizeFromCart(ctx, c)
	require.NoError(t, err)
	require.Equal(t, "order-8", order.ID)
}

func TestNewLedgerFailsWhenOrdersCannotBeRead(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	path := f.backend.Path(recordx.KeyFor(contractx.KindOrders))
	require.NoError(t, os.Mkdir(path, 0o755))

	_, err := NewLedger(context.Background(), f.store)
	require.Error(t, err)

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	require.True(t, info.IsDir(), "unreadable orders must be left alone")
}

func TestOrderTotalProperty(t *testing.T) {
	items := catalogx.DefaultItems()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("order total is the exact sum of price times quantity", prop.ForAll(
		func(quantities []int) bool {
			f := newFixture(t)
			ledger := f.ledger(t)
			c := f.cart(t, "p")

			want := 0
			for i, q := range quantities {
				item := items[i%len(items)]
				if _, err := c.Add(context.Background(), item.ID, item.Sizes[0], q); err != nil {
					return false
				}
				want += item.Price * q
			}

			o, err := ledger.FinalizeFromCart(context.Background(), c)
			if err != nil {
				return false
			}
			return o.Total == want && len(o.Items) == len(quantities) && c.Len() == 0
		},
		gen.SliceOfN(5, gen.IntRange(1, 9)).SuchThat(func(v []int) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t)
}
