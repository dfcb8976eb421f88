package record

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultUpstashKeyPrefix = "chative:record:"
	defaultMaxResponseBytes = 64 << 20
)

// UpstashOption customizes UpstashBackend.
type UpstashOption func(*UpstashBackend)

func WithKeyPrefix(prefix string) UpstashOption {
	return func(b *UpstashBackend) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			b.keyPrefix = trimmed
		}
	}
}

// WithTTL expires snapshots after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) UpstashOption {
	return func(b *UpstashBackend) {
		b.ttl = ttl
	}
}

// WithMaxResponseBytes caps a single Redis reply. Larger replies fail with
// ErrSnapshotTooLarge instead of being truncated.
func WithMaxResponseBytes(n int64) UpstashOption {
	return func(b *UpstashBackend) {
		if n > 0 {
			b.maxResponseBytes = n
		}
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(b *UpstashBackend) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// UpstashBackend persists record snapshots in Upstash Redis via REST.
type UpstashBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration

	maxResponseBytes int64
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL       string        `envconfig:"URL" split_words:"true" required:"true"`
	Token     string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	KeyPrefix string        `envconfig:"KEY_PREFIX" split_words:"true"`
	Timeout   time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
	TTL       time.Duration `envconfig:"TTL" split_words:"true" default:"0s"`
	// MaxResponseBytes of zero keeps the 64 MiB default.
	MaxResponseBytes int64 `envconfig:"MAX_RESPONSE_BYTES" split_words:"true"`
}

func NewUpstashBackend(cfg UpstashRedisConfig, opts ...UpstashOption) (*UpstashBackend, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	b := &UpstashBackend{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix:        defaultUpstashKeyPrefix,
		maxResponseBytes: defaultMaxResponseBytes,
	}
	WithKeyPrefix(cfg.KeyPrefix)(b)
	WithTTL(cfg.TTL)(b)
	WithMaxResponseBytes(cfg.MaxResponseBytes)(b)

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	if b.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return b, nil
}

func (b *UpstashBackend) Read(ctx context.Context, key Key) ([]byte, error) {
	resp, err := b.exec(ctx, []any{"GET", b.redisKey(key)})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrRecordNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", key, err)
	}
	return []byte(encoded), nil
}

func (b *UpstashBackend) Write(ctx context.Context, key Key, data []byte) error {
	cmd := []any{"SET", b.redisKey(key), string(data)}
	if b.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(b.ttl))
	}
	_, err := b.exec(ctx, cmd)
	return err
}

func (b *UpstashBackend) redisKey(key Key) string {
	return b.keyPrefix + key.Name()
}

func (b *UpstashBackend) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if b == nil {
		return nil, errors.New("nil upstash backend")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, b.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if int64(len(raw)) > b.maxResponseBytes {
		return nil, fmt.Errorf("%w: redis reply over %d bytes", ErrSnapshotTooLarge, b.maxResponseBytes)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
