package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/spiralshops/relevance/internal/domain"
)

// DefaultConnectTimeout is the maximum time to wait for the initial ping
const DefaultConnectTimeout = 5 * time.Second

// ValkeyConfig holds the settings for a shared Valkey-backed result cache
type ValkeyConfig struct {
	Address        string
	Password       string
	DB             int
	KeyPrefix      string
	ConnectTimeout time.Duration
}

// ValkeyCache is a ResultCache shared between server replicas.
// Expiry is enforced by the server, so an expired key reads as a nil reply.
type ValkeyCache struct {
	client    valkeylib.Client
	keyPrefix string
}

// NewValkeyCache connects to Valkey and verifies the connection with a ping.
// The caller is responsible for calling Close.
func NewValkeyCache(cfg ValkeyConfig) (*ValkeyCache, error) {
	opts := valkeylib.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client, err := valkeylib.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey (timeout: %v): %w", timeout, err)
	}

	return newValkeyCache(client, cfg.KeyPrefix), nil
}

func newValkeyCache(client valkeylib.Client, prefix string) *ValkeyCache {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &ValkeyCache{client: client, keyPrefix: prefix}
}

func (c *ValkeyCache) fullKey(key string) string {
	return c.keyPrefix + key
}

// Get retrieves a value from Valkey
func (c *ValkeyCache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.B().Get().Key(c.fullKey(key)).Build()

	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkeylib.IsValkeyNil(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	return data, nil
}

// Set stores a value with a millisecond-precision expiry
func (c *ValkeyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return domain.ErrInvalidTTL
	}

	cmd := c.client.B().Set().
		Key(c.fullKey(key)).
		Value(valkeylib.BinaryString(value)).
		Px(ttl).
		Build()

	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (c *ValkeyCache) Delete(ctx context.Context, key string) error {
	cmd := c.client.B().Del().Key(c.fullKey(key)).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("valkey del %s: %w", key, err)
	}
	return nil
}

// Exists checks whether a live key is present
func (c *ValkeyCache) Exists(ctx context.Context, key string) (bool, error) {
	cmd := c.client.B().Exists().Key(c.fullKey(key)).Build()
	count, err := c.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return false, fmt.Errorf("valkey exists %s: %w", key, err)
	}
	return count > 0, nil
}

// Ping checks connectivity, used by the health endpoint
func (c *ValkeyCache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close closes the Valkey connection
func (c *ValkeyCache) Close() error {
	if c.client != nil {
		c.client.Close()
	}
	return nil
}
