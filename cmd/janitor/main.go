package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	r "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SirClappington/synq/internal/config"
	"github.com/SirClappington/synq/internal/janitor"
	"github.com/SirClappington/synq/internal/storage"
)

const leaderKey = "synq:janitor:leader"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := newLogger(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	rdb := r.NewClient(&r.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer rdb.Close()

	jan := janitor.New(storage.NewPostgresResultCache(db), log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return run(ctx, cfg, log, rdb, jan)
	})
	g.Go(func() error {
		return watchRedis(ctx, log, rdb)
	})
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("janitor exited", zap.Error(err))
	}
	log.Info("janitor stopped")
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger, rdb *r.Client, jan *janitor.Janitor) error {
	hostname, _ := os.Hostname()

	sweep := func() {
		// Leader election: only one replica sweeps per interval. The lock
		// expires on its own, so a crashed leader never wedges the sweep.
		ok, err := rdb.SetNX(ctx, leaderKey, hostname, cfg.CacheSweepInterval/2).Result()
		if err != nil {
			log.Warn("leader lock unavailable", zap.Error(err))
			return
		}
		if !ok {
			log.Debug("another replica holds the sweep lock")
			return
		}
		if _, err := jan.Sweep(ctx, cfg.CacheMaxAge); err != nil && ctx.Err() == nil {
			log.Warn("sweep failed", zap.Error(err))
		}
	}

	sweep()
	tick := time.NewTicker(cfg.CacheSweepInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			sweep()
		}
	}
}

// watchRedis surfaces lock-backend trouble between sweeps: a dead redis
// means no replica can take the leader lock, which otherwise only shows up
// at the next sweep interval.
func watchRedis(ctx context.Context, log *zap.Logger, rdb *r.Client) error {
	tick := time.NewTicker(30 * time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Warn("leader-lock backend unreachable", zap.Error(err))
			}
		}
	}
}

func newLogger(appEnv string) (*zap.Logger, error) {
	if appEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
