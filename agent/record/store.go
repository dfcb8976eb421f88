package record

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	contractx "github.com/tanpawarit/Chative-Voice-Tools/agent/contract"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrNilBackend     = errors.New("record backend is nil")
	// ErrSnapshotTooLarge means a backend reply exceeded its size limit and was not read.
	ErrSnapshotTooLarge = errors.New("record snapshot exceeds size limit")
)

var unsafeScopeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Key addresses one persisted document. Scope partitions a kind, e.g. one cart per session.
type Key struct {
	Kind  contractx.RecordKind
	Scope string
}

func KeyFor(kind contractx.RecordKind) Key {
	return Key{Kind: kind}
}

func ScopedKey(kind contractx.RecordKind, scope string) Key {
	return Key{Kind: kind, Scope: scope}
}

// Name is the backend-neutral document name: "cart" or "cart.<scope>".
func (k Key) Name() string {
	scope := unsafeScopeChars.ReplaceAllString(strings.TrimSpace(k.Scope), "_")
	if scope == "" {
		return string(k.Kind)
	}
	return string(k.Kind) + "." + scope
}

// ValidScope reports whether scope is used verbatim by Name. Other scopes are
// sanitized, so distinct inputs such as "a.b" and "a_b" would share a document.
func ValidScope(scope string) bool {
	return scope != "" && !unsafeScopeChars.MatchString(scope)
}

func (k Key) String() string {
	return k.Name()
}

// Backend stores whole documents. Read returns ErrRecordNotFound when nothing was saved yet.
type Backend interface {
	Read(ctx context.Context, key Key) ([]byte, error)
	Write(ctx context.Context, key Key, data []byte) error
}

// Store mirrors in-memory record collections to a Backend. The in-memory state of
// the caller stays authoritative; the backend is only read back at startup.
type Store struct {
	backend Backend
	locks   *xsync.MapOf[string, *semaphore.Weighted]
}

func NewStore(backend Backend) (*Store, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	return &Store{
		backend: backend,
		locks:   xsync.NewMapOf[string, *semaphore.Weighted](),
	}, nil
}

// Lock serializes read-modify-persist sequences on key across the process.
// Waiting past the context deadline fails with contract.ErrTransient.
func (s *Store) Lock(ctx context.Context, key Key) (func(), error) {
	sem, _ := s.locks.LoadOrCompute(key.Name(), func() *semaphore.Weighted {
		return semaphore.NewWeighted(1)
	})
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: lock %s: %v", contractx.ErrTransient, key, err)
	}
	return func() { sem.Release(1) }, nil
}

// Load returns the persisted records for key. A missing or malformed document
// yields an empty slice; corruption is logged, never returned. A failed read is
// an error so callers never start empty over data they could not read.
func Load[T any](ctx context.Context, s *Store, key Key) ([]T, error) {
	raw, err := s.backend.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []T{}, nil
	}

	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrCorruptPersistedState, err)).
			Str("key", key.Name()).
			Msg("discarding corrupt persisted state")
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Save overwrites the whole document for key with records.
func Save[T any](ctx context.Context, s *Store, key Key, records []T) error {
	if records == nil {
		records = []T{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	payload = append(payload, '\n')
	if err := s.backend.Write(ctx, key, payload); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
