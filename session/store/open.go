package store

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/bizplan/config"
	"github.com/sweetpotato0/bizplan/contrib/session/inmemory"
	"github.com/sweetpotato0/bizplan/session"
)

// Open builds the record store selected by cfg.Driver. The returned close
// function releases the backend connection.
func Open(ctx context.Context, cfg config.Store) (session.Store, func() error, error) {
	switch cfg.Driver {
	case "", config.StoreMemory:
		return inmemory.NewInMemoryStore(), func() error { return nil }, nil

	case config.StoreRedis:
		if err := config.ValidateRedisConfig(cfg.Redis.Addr, cfg.Redis.DB, cfg.Redis.Prefix); err != nil {
			return nil, nil, err
		}
		s := NewRedisStore(&RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return s, s.Close, nil

	case config.StorePostgres:
		p := cfg.Postgres
		if err := config.ValidatePostgresConfig(p.Host, p.Port, p.User, p.DBName, p.SSLMode); err != nil {
			return nil, nil, err
		}
		s, err := NewPostgresStore(ctx, &PostgresConfig{
			Host:     p.Host,
			Port:     p.Port,
			User:     p.User,
			Password: p.Password,
			DBName:   p.DBName,
			SSLMode:  p.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.StoreMongo:
		m := cfg.Mongo
		if err := config.ValidateMongoDBConfig(m.URI, m.Database, m.Collection); err != nil {
			return nil, nil, err
		}
		s, err := NewMongoStore(ctx, &MongoConfig{URI: m.URI, Database: m.Database, Collection: m.Collection})
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Close(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
