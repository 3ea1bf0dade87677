// internal/infrastructure/recordstore/client.go
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

var (
	// ErrUnconfigured is returned by every operation when neither
	// credential is present. It is an expected state, not a fault.
	ErrUnconfigured = errors.New("record store client is not configured")

	// ErrNotFound is returned on an ordinary lookup miss
	ErrNotFound = errors.New("record not found")

	// ErrReadOnly is returned for writes under the public key
	ErrReadOnly = errors.New("record store key does not permit writes")
)

// Mode describes what the resolved credentials allow
type Mode int

const (
	ModeInert Mode = iota
	ModeReadOnly
	ModeReadWrite
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "read-only"
	case ModeReadWrite:
		return "read-write"
	default:
		return "inert"
	}
}

// Client is a thin accessor over the backend record store. Records are
// opaque JSON blobs addressed by (collection, key).
type Client struct {
	rdb  *redis.Client
	mode Mode
	log  *logrus.Logger
}

// New resolves credentials once and builds the client. The server key takes
// priority over the public key; with neither the client is an inert stub
// that fails every operation with ErrUnconfigured. New never fails: callers
// must tolerate a client that is present but non-functional.
func New(cfg *config.Config, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	mode, credential := resolveCredentials(cfg.RecordStore.ServerKey, cfg.RecordStore.PublicKey)
	if mode == ModeInert {
		logger.Warn("record store credentials missing, client degraded to inert stub")
		return &Client{mode: ModeInert, log: logger}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRecordStoreAddr(),
		Password: credential,
		DB:       cfg.RecordStore.DB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	logger.WithField("mode", mode.String()).Info("record store client configured")

	return &Client{
		rdb:  rdb,
		mode: mode,
		log:  logger,
	}
}

// resolveCredentials applies the recognized precedence: the server-privileged
// key wins over the public-restricted key.
func resolveCredentials(serverKey, publicKey string) (Mode, string) {
	if serverKey != "" {
		return ModeReadWrite, serverKey
	}
	if publicKey != "" {
		return ModeReadOnly, publicKey
	}
	return ModeInert, ""
}

// Mode reports what the resolved credentials allow
func (c *Client) Mode() Mode {
	return c.mode
}

// Get retrieves a record by collection and key
func (c *Client) Get(ctx context.Context, collection, key string) ([]byte, error) {
	if c.mode == ModeInert {
		return nil, ErrUnconfigured
	}

	data, err := c.rdb.Get(ctx, recordKey(collection, key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("failed to read record %s/%s: %w", collection, key, err)
	}

	return data, nil
}

// Put stores a record under collection and key, overwriting any prior value
func (c *Client) Put(ctx context.Context, collection, key string, record []byte) error {
	if c.mode == ModeInert {
		return ErrUnconfigured
	}
	if c.mode == ModeReadOnly {
		return ErrReadOnly
	}

	if err := c.rdb.Set(ctx, recordKey(collection, key), record, 0).Err(); err != nil {
		return fmt.Errorf("failed to write record %s/%s: %w", collection, key, err)
	}

	return nil
}

// PutExpiring stores a record that lapses after ttl. Cart mirrors use this
// so abandoned sessions do not accumulate in the backend.
func (c *Client) PutExpiring(ctx context.Context, collection, key string, record []byte, ttl time.Duration) error {
	if c.mode == ModeInert {
		return ErrUnconfigured
	}
	if c.mode == ModeReadOnly {
		return ErrReadOnly
	}

	if err := c.rdb.Set(ctx, recordKey(collection, key), record, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write record %s/%s: %w", collection, key, err)
	}

	return nil
}

// ExpiringWriter adapts the client for callers whose records should lapse,
// presenting the plain Put shape they expect
type ExpiringWriter struct {
	Client *Client
	TTL    time.Duration
}

func (w ExpiringWriter) Put(ctx context.Context, collection, key string, record []byte) error {
	return w.Client.PutExpiring(ctx, collection, key, record, w.TTL)
}

// Redis exposes the underlying connection for auxiliary uses such as
// rate-limit counters. It is nil for an inert client.
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Health checks the record store connection. An inert client reports
// ErrUnconfigured so callers can distinguish "down" from "never configured".
func (c *Client) Health() error {
	if c.mode == ModeInert {
		return ErrUnconfigured
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func recordKey(collection, key string) string {
	return fmt.Sprintf("%s:%s", collection, key)
}
