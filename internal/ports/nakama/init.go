package nakama

import (
	"context"
	"database/sql"
	"math/rand"
	"os"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/rs/zerolog"

	"bigtwo/internal/app"
	"bigtwo/internal/config"
	"bigtwo/internal/ports/natsbus"
	"bigtwo/internal/ports/postgres"
	"bigtwo/internal/ports/redisstore"
	"bigtwo/internal/timer"
)

// InitModule wires configuration, adapters, the game service and the match
// handler into the Nakama runtime. Adapters whose address is unset stay
// disabled; the engine runs standalone without them.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	cfg, err := config.Load(os.Getenv("BIGTWO_CONFIG"))
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zlog := zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("app", cfg.App.Name).
		Logger()

	registry := timer.NewRegistry(zlog)
	opts := []app.ServiceOption{app.WithTurnTimeout(cfg.Game.TurnTimeout)}

	if cfg.NATS.URL != "" {
		bus, err := natsbus.Connect(cfg.NATS, zlog)
		if err != nil {
			return err
		}
		opts = append(opts, app.WithBroadcaster(bus))
	}
	if cfg.Redis.Addr != "" {
		store, err := redisstore.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		opts = append(opts, app.WithSnapshotStore(store))
	}
	if cfg.Database.DSN != "" {
		scores, err := postgres.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		opts = append(opts, app.WithScoreStore(scores))
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	svc := app.NewService(zlog, rng, registry, opts...)
	deps := &Deps{Service: svc, Config: cfg}

	if err := RegisterRPCs(initializer); err != nil {
		return err
	}
	if err := initializer.RegisterMatch(MatchName, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(deps), nil
	}); err != nil {
		return err
	}

	logger.Info("bigtwo module loaded")
	return nil
}
