package app

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arxivsearch/internal/config"
	"github.com/kailas-cloud/arxivsearch/internal/db"
	dbRedis "github.com/kailas-cloud/arxivsearch/internal/db/redis"
	"github.com/kailas-cloud/arxivsearch/internal/domain/paper"
	"github.com/kailas-cloud/arxivsearch/internal/domain/provider"
	"github.com/kailas-cloud/arxivsearch/internal/repository/milvus"
	"github.com/kailas-cloud/arxivsearch/internal/repository/papers"
	searchuc "github.com/kailas-cloud/arxivsearch/internal/usecase/search"
)

// PaperIndex is the read side of a paper index.
type PaperIndex interface {
	searchuc.Index
	Ping(ctx context.Context) error
	FetchVector(ctx context.Context, paperID string, spec provider.Spec) ([]float32, error)
}

// IndexWriter creates the index and stores papers.
type IndexWriter interface {
	EnsureIndex(ctx context.Context, specs []provider.Spec, recreate bool) (bool, error)
	Save(ctx context.Context, records []paper.Record) error
	WaitIndexed(ctx context.Context) error
}

// CacheStore is the key-value store behind the embedding cache.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Index bundles the opened backend.
type Index struct {
	Backend string
	Papers  PaperIndex
	Writer  IndexWriter

	cache   CacheStore
	closeFn func()
}

// Cache returns the embedding cache store, or nil when the backend has none.
func (i *Index) Cache() CacheStore {
	return i.cache
}

// Close releases the backend connection.
func (i *Index) Close() {
	if i.closeFn != nil {
		i.closeFn()
	}
}

// OpenIndex connects to the configured backend and waits until it answers.
func OpenIndex(ctx context.Context, cfg config.IndexConfig, specs []provider.Spec, logger *zap.Logger) (*Index, error) {
	timeout := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Backend {
	case config.BackendRedis, "":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Redis.Addrs,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			Valkey:    cfg.Redis.Valkey,
			KeyPrefix: cfg.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs), zap.Bool("valkey", cfg.Redis.Valkey))

		return &Index{
			Backend: config.BackendRedis,
			Papers:  papers.New(store, cfg.Name, cfg.KeyPrefix),
			Writer:  papers.NewWriter(store, cfg.Name, cfg.KeyPrefix, db.VectorFlat),
			cache:   store,
			closeFn: store.Close,
		}, nil

	case config.BackendMilvus:
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		client, err := milvusclient.NewClient(dialCtx, milvusclient.Config{Address: cfg.Milvus.Address})
		if err != nil {
			return nil, fmt.Errorf("connect milvus %s: %w", cfg.Milvus.Address, err)
		}
		logger.Info("Connected to milvus",
			zap.String("address", cfg.Milvus.Address),
			zap.String("collection", cfg.Milvus.Collection),
		)

		return &Index{
			Backend: config.BackendMilvus,
			Papers:  milvus.New(client, milvus.Config{Collection: cfg.Milvus.Collection, EF: cfg.Milvus.EF}),
			Writer:  milvus.NewWriter(client, cfg.Milvus.Collection, cfg.Milvus.EF, specs),
			closeFn: func() {
				if err := client.Close(); err != nil {
					logger.Warn("close milvus client", zap.Error(err))
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

// DescribeSchema renders the index definition without connecting.
func DescribeSchema(cfg config.IndexConfig, specs []provider.Spec) (string, error) {
	switch cfg.Backend {
	case config.BackendRedis, "":
		def, err := papers.NewWriter(nil, cfg.Name, cfg.KeyPrefix, db.VectorFlat).IndexDefinition(specs)
		if err != nil {
			return "", err
		}
		return def.String(), nil

	case config.BackendMilvus:
		schema := milvus.NewWriter(nil, cfg.Milvus.Collection, cfg.Milvus.EF, specs).Schema(specs)
		var b strings.Builder
		fmt.Fprintf(&b, "collection %s\n", schema.CollectionName)
		for _, f := range schema.Fields {
			fmt.Fprintf(&b, "  %s %v", f.Name, f.DataType)
			if f.PrimaryKey {
				b.WriteString(" primary")
			}
			for _, k := range slices.Sorted(maps.Keys(f.TypeParams)) {
				fmt.Fprintf(&b, " %s=%s", k, f.TypeParams[k])
			}
			b.WriteString("\n")
		}
		return b.String(), nil

	default:
		return "", fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
