package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	cartx "github.com/tanpawarit/Chative-Voice-Tools/agent/cart"
	catalogx "github.com/tanpawarit/Chative-Voice-Tools/agent/catalog"
	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	leadx "github.com/tanpawarit/Chative-Voice-Tools/agent/lead"
	orderx "github.com/tanpawarit/Chative-Voice-Tools/agent/order"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
	tutorx "github.com/tanpawarit/Chative-Voice-Tools/agent/tutor"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already open")
	ErrInvalidVariant  = errors.New("invalid variant")
	// ErrInvalidSessionID rejects ids that would not map to a distinct record key.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// Session is one dialogue. Its cart, tutor state and lead draft belong to it alone;
// the order and lead ledgers are shared with every other session of the registry.
type Session struct {
	ID        string
	Variant   contractx.Variant
	StoreName string
	CreatedAt time.Time

	Catalog *catalogx.Catalog
	Content *catalogx.ContentCatalog
	Cart    *cartx.Manager
	Orders  *orderx.Ledger
	Tutor   *tutorx.Machine
	Lead    *leadx.Book
}

// Deps are the process-wide collaborators a Registry hands to every session.
type Deps struct {
	Store       *recordx.Store
	Catalog     *catalogx.Catalog
	Content     *catalogx.ContentCatalog
	Orders      *orderx.Ledger
	Leads       *leadx.Ledger
	StoreName   string
	StrictSizes bool
}

func (d Deps) validate() error {
	switch {
	case d.Store == nil:
		return errors.New("record store is required")
	case d.Catalog == nil:
		return errors.New("catalog is required")
	case d.Content == nil:
		return errors.New("content catalog is required")
	case d.Orders == nil:
		return errors.New("order ledger is required")
	case d.Leads == nil:
		return errors.New("lead ledger is required")
	}
	return nil
}

type openOptions struct {
	id        string
	cartScope *string
}

type OpenOption func(*openOptions)

// WithSessionID opens the session under a caller-chosen id instead of a new uuid.
func WithSessionID(id string) OpenOption {
	return func(o *openOptions) {
		o.id = strings.TrimSpace(id)
	}
}

// WithCartScope overrides the cart key scope, which defaults to the session id.
// An empty scope keeps the cart in the plain "cart" document.
func WithCartScope(scope string) OpenOption {
	return func(o *openOptions) {
		o.cartScope = &scope
	}
}

type Registry struct {
	deps     Deps
	now      func() time.Time
	sessions *xsync.MapOf[string, *Session]
}

func NewRegistry(deps Deps) (*Registry, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Registry{
		deps:     deps,
		now:      time.Now,
		sessions: xsync.NewMapOf[string, *Session](),
	}, nil
}

func (r *Registry) Open(ctx context.Context, variant contractx.Variant, opts ...OpenOption) (*Session, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVariant, variant)
	}

	o := openOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if !recordx.ValidScope(o.id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, o.id)
	}
	scope := o.id
	if o.cartScope != nil {
		scope = strings.TrimSpace(*o.cartScope)
		if scope != "" && !recordx.ValidScope(scope) {
			return nil, fmt.Errorf("%w: cart scope %q", ErrInvalidSessionID, scope)
		}
	}

	c, err := cartx.New(ctx, r.deps.Store, r.deps.Catalog, scope, cartx.WithStrictSizes(r.deps.StrictSizes))
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}
	tutor, err := tutorx.New(r.deps.Content)
	if err != nil {
		return nil, fmt.Errorf("open tutor: %w", err)
	}
	book, err := leadx.NewBook(r.deps.Leads, o.id)
	if err != nil {
		return nil, fmt.Errorf("open lead: %w", err)
	}

	s := &Session{
		ID:        o.id,
		Variant:   variant,
		StoreName: r.deps.StoreName,
		CreatedAt: r.now().UTC(),
		Catalog:   r.deps.Catalog,
		Content:   r.deps.Content,
		Cart:      c,
		Orders:    r.deps.Orders,
		Tutor:     tutor,
		Lead:      book,
	}
	if _, loaded := r.sessions.LoadOrStore(s.ID, s); loaded {
		return nil, fmt.Errorf("%w: %s", ErrSessionExists, s.ID)
	}

	log.Info().Str("session_id", s.ID).Str("variant", string(variant)).Int("cart_lines", c.Len()).Msg("session opened")
	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	s, ok := r.sessions.Load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

func (r *Registry) Len() int {
	return r.sessions.Size()
}

// Close forgets the session. For SDR sessions a filled, unsaved lead is
// finalized first; the session stays registered until that succeeds, so a
// failed Close can be retried. A transient failure is retried once.
func (r *Registry) Close(ctx context.Context, id string) error {
	s, ok := r.sessions.Load(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	if s.Variant == contractx.VariantSDR {
		if err := finalizeLead(ctx, s); err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("finalize lead on close failed, session kept")
			return err
		}
	}

	r.sessions.Delete(id)
	log.Info().Str("session_id", id).Msg("session closed")
	return nil
}

func finalizeLead(ctx context.Context, s *Session) error {
	var err error
	for attempt := 1; attempt <= 2; attempt++ {
		if s.Lead.Finalized() || s.Lead.Snapshot().IsEmpty() {
			return nil
		}
		_, err = s.Lead.Finalize(ctx)
		if err == nil || errors.Is(err, contractx.ErrAlreadyFinalized) {
			return nil
		}
		if !errors.Is(err, contractx.ErrTransient) || ctx.Err() != nil {
			break
		}
		log.Warn().Err(err).Str("session_id", s.ID).Int("attempt", attempt).Msg("transient lead finalize failure")
	}
	return err
}
