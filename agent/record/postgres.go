package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

type snapshotRow struct {
	bun.BaseModel `bun:"table:record_snapshots,alias:rs"`

	Key       string    `bun:"key,pk"`
	Body      string    `bun:"body,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresBackend stores each document as one row keyed by Key.Name().
type PostgresBackend struct {
	db  *bun.DB
	now func() time.Time
}

func NewPostgresBackend(ctx context.Context, cfg PostgresConfig) (*PostgresBackend, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	b := NewPostgresBackendFromDB(bun.NewDB(sqldb, pgdialect.New()))
	if err := b.Migrate(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func NewPostgresBackendFromDB(db *bun.DB) *PostgresBackend {
	return &PostgresBackend{db: db, now: time.Now}
}

func (b *PostgresBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.NewCreateTable().Model((*snapshotRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create record_snapshots: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	row := new(snapshotRow)
	err := b.db.NewSelect().Model(row).Where("key = ?", key.Name()).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return []byte(row.Body), nil
}

func (b *PostgresBackend) Write(ctx context.Context, key Key, data []byte) error {
	row := &snapshotRow{Key: key.Name(), Body: string(data), UpdatedAt: b.now().UTC()}
	if _, err := b.upsert(row).Exec(ctx); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (b *PostgresBackend) upsert(row *snapshotRow) *bun.InsertQuery {
	return b.db.NewInsert().
		Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("body = EXCLUDED.body").
		Set("updated_at = EXCLUDED.updated_at")
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
