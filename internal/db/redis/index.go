package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/arxivsearch/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := def.Args()
	if err != nil {
		return err //nolint:wrapcheck // validation message is self-describing
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists checks index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// IndexProgress returns the indexed share of matching documents (0..1) from the
// FT.INFO percent_indexed field. Servers that do not report it count as done.
func (s *Store) IndexProgress(ctx context.Context, name string) (float64, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	msg, err := s.do(ctx, cmd).ToMessage()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	field, ok := infoField(msg, "percent_indexed")
	if !ok {
		return 1, nil
	}
	pct, err := field.AsFloat64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIndexInfo, Err: fmt.Errorf("percent_indexed: %w", err)}
	}
	return pct, nil
}

// infoField finds a top-level FT.INFO attribute in either reply shape:
// a RESP3 map or a flat RESP2 key/value array.
func infoField(msg rueidis.RedisMessage, key string) (rueidis.RedisMessage, bool) {
	if msg.IsMap() {
		m, err := msg.ToMap()
		if err != nil {
			return rueidis.RedisMessage{}, false
		}
		v, ok := m[key]
		return v, ok
	}
	arr, err := msg.ToArray()
	if err != nil {
		return rueidis.RedisMessage{}, false
	}
	for i := 0; i+1 < len(arr); i += 2 {
		if k, err := arr[i].ToString(); err == nil && k == key {
			return arr[i+1], true
		}
	}
	return rueidis.RedisMessage{}, false
}

// WaitForIndexed polls IndexProgress every interval until the index has caught up
// with its documents or ctx is done.
func (s *Store) WaitForIndexed(ctx context.Context, name string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pct, err := s.IndexProgress(ctx, name)
		if err != nil {
			return err
		}
		if pct >= 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for index %s at %.0f%%: %w", name, pct*100, ctx.Err())
		case <-ticker.C:
		}
	}
}
