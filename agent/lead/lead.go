package lead

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
	recordx "github.com/tanpawarit/Chative-Voice-Tools/agent/record"
)

type Lead struct {
	SessionID   string `json:"session_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
	UseCase     string `json:"use_case,omitempty"`
	TeamSize    string `json:"team_size,omitempty"`
	Timeline    string `json:"timeline,omitempty"`
	FinalizedAt string `json:"finalized_at,omitempty"`
}

func (l Lead) RecordID() string {
	return l.SessionID
}

func (l Lead) IsEmpty() bool {
	return l.Name == "" && l.Company == "" && l.Email == "" && l.Role == "" &&
		l.UseCase == "" && l.TeamSize == "" && l.Timeline == ""
}

// Missing names the fields still unknown, in the order an SDR would ask for them.
func (l Lead) Missing() []string {
	var out []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", l.Name},
		{"company", l.Company},
		{"email", l.Email},
		{"role", l.Role},
		{"use_case", l.UseCase},
		{"team_size", l.TeamSize},
		{"timeline", l.Timeline},
	} {
		if f.value == "" {
			out = append(out, f.name)
		}
	}
	return out
}

// Fields is a partial update. Nil fields are left as they are.
type Fields struct {
	Name     *string `mapstructure:"name"`
	Company  *string `mapstructure:"company"`
	Email    *string `mapstructure:"email"`
	Role     *string `mapstructure:"role"`
	UseCase  *string `mapstructure:"use_case"`
	TeamSize *string `mapstructure:"team_size"`
	Timeline *string `mapstructure:"timeline"`
}

func (f Fields) apply(l *Lead) (int, error) {
	set := 0
	assign := func(dst *string, src *string) {
		if src == nil {
			return
		}
		if v := strings.TrimSpace(*src); v != "" {
			*dst = v
			set++
		}
	}

	if f.Email != nil && strings.TrimSpace(*f.Email) != "" {
		addr, err := mail.ParseAddress(strings.TrimSpace(*f.Email))
		if err != nil {
			return 0, fmt.Errorf("%w: email %q is not valid", contractx.ErrInvalidArgument, *f.Email)
		}
		email := addr.Address
		f.Email = &email
	}

	assign(&l.Name, f.Name)
	assign(&l.Company, f.Company)
	assign(&l.Email, f.Email)
	assign(&l.Role, f.Role)
	assign(&l.UseCase, f.UseCase)
	assign(&l.TeamSize, f.TeamSize)
	assign(&l.Timeline, f.Timeline)
	return set, nil
}

// Ledger is the process-wide sequence of finalized leads.
type Ledger struct {
	store     *recordx.Store
	key       recordx.Key
	publisher contractx.Publisher

	mu    sync.RWMutex
	leads []Lead
}

type LedgerOption func(*Ledger)

func WithPublisher(p contractx.Publisher) LedgerOption {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func NewLedger(ctx context.Context, store *recordx.Store, opts ...LedgerOption) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("record store is required")
	}
	l := &Ledger{store: store, key: recordx.KeyFor(contractx.KindLeads)}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	loaded, err := recordx.Load[Lead](ctx, store, l.key)
	if err != nil {
		return nil, err
	}
	l.leads = loaded
	return l, nil
}

func (l *Ledger) add(ctx context.Context, lead Lead) error {
	unlock, err := l.store.Lock(ctx, l.key)
	if err != nil {
		return err
	}
	defer unlock()

	l.mu.Lock()
	l.leads = append(l.leads, lead)
	snapshot := append([]Lead(nil), l.leads...)
	l.mu.Unlock()

	if err := recordx.Save(ctx, l.store, l.key, snapshot); err != nil {
		log.Error().Err(err).Str("session_id", lead.SessionID).Msg("leads save failed, in-memory ledger kept")
	}
	return nil
}

func (l *Ledger) All() []Lead {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Lead{}, l.leads...)
}

// Book holds one session's draft lead until it is finalized.
type Book struct {
	ledger *Ledger
	now    func() time.Time

	mu        sync.Mutex
	lead      Lead
	finalized bool
}

func NewBook(ledger *Ledger, sessionID string) (*Book, error) {
	if ledger == nil {
		return nil, errors.New("lead ledger is required")
	}
	return &Book{ledger: ledger, now: time.Now, lead: Lead{SessionID: sessionID}}, nil
}

func (b *Book) Update(f Fields) (Lead, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return Lead{}, fmt.Errorf("%w: lead was already saved", contractx.ErrAlreadyFinalized)
	}

	draft := b.lead
	set, err := f.apply(&draft)
	if err != nil {
		return Lead{}, err
	}
	if set == 0 {
		return Lead{}, fmt.Errorf("%w: no lead fields given", contractx.ErrInvalidArgument)
	}
	b.lead = draft
	return b.lead, nil
}

func (b *Book) Snapshot() Lead {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lead
}

func (b *Book) Finalized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finalized
}

// Finalize appends the lead to the ledger exactly once.
func (b *Book) Finalize(ctx context.Context) (Lead, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finalized {
		return Lead{}, fmt.Errorf("%w: lead was already saved", contractx.ErrAlreadyFinalized)
	}
	if b.lead.IsEmpty() {
		return Lead{}, fmt.Errorf("%w: lead has no details yet", contractx.ErrInvalidArgument)
	}

	final := b.lead
	final.FinalizedAt = b.now().UTC().Format(time.RFC3339Nano)
	if err := b.ledger.add(ctx, final); err != nil {
		return Lead{}, err
	}
	b.lead = final
	b.finalized = true

	log.Info().Str("session_id", final.SessionID).Str("company", final.Company).Msg("lead finalized")
	if p := b.ledger.publisher; p != nil {
		if err := p.Publish(ctx, contractx.KindLeads, final); err != nil {
			log.Warn().Err(err).Str("session_id", final.SessionID).Msg("lead notification failed")
		}
	}
	return final, nil
}
