// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/letsworkapps/authportal/internal/platform/config"
	pgstore "github.com/letsworkapps/authportal/internal/platform/postgres"
	redisstore "github.com/letsworkapps/authportal/internal/platform/redis"
	"github.com/letsworkapps/authportal/internal/platform/sqlite"
	"github.com/letsworkapps/authportal/internal/session"
	"github.com/letsworkapps/authportal/internal/users/account"
)

// database is the account store selected by DATABASE_URL.
type database struct {
	repository account.Repository
	ping       func(ctx context.Context) error
	close      func()
}

// openDatabase connects to PostgreSQL or opens the SQLite file.
func openDatabase(ctx context.Context, cfg *config.Config, log *slog.Logger) (*database, error) {
	switch {
	case cfg.IsPostgres():
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		return &database{
			repository: account.NewPostgresRepository(pool),
			ping:       func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
			close: func() {
				log.Info("closing postgres pool")
				pool.Close()
			},
		}, nil

	case cfg.IsSQLite():
		db, err := sqlite.Open(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		log.Info("sqlite database opened", slog.String("path", cfg.SQLitePath()))
		return &database{
			repository: account.NewSQLiteRepository(db),
			ping:       func(ctx context.Context) error { return sqlite.Ping(ctx, db) },
			close: func() {
				log.Info("closing sqlite database")
				if err := db.Close(); err != nil {
					log.Error("sqlite close error", slog.Any("error", err))
				}
			},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL")
	}
}

// openSessionStore builds the backend selected by SESSION_TYPE.
func openSessionStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionType {
	case config.SessionTypeRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return session.NewRedisStore(client), func() {
			log.Info("closing redis client")
			if err := client.Close(); err != nil {
				log.Error("redis close error", slog.Any("error", err))
			}
		}, nil

	case config.SessionTypeFilesystem:
		store, err := session.NewFileStore(cfg.SessionFileDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("file session store ready", slog.String("dir", cfg.SessionFileDir))
		return store, func() {}, nil

	case config.SessionTypeMemory:
		log.Warn("memory sessions are lost on restart and not shared between instances")
		return session.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported SESSION_TYPE %q", cfg.SessionType)
	}
}
