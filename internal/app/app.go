package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"polymarket-edge/internal/alerting"
	"polymarket-edge/internal/apiclient"
	"polymarket-edge/internal/config"
	"polymarket-edge/internal/settings"
	"polymarket-edge/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newClient() (*apiclient.Client, error) {
	return apiclient.New(apiclient.Options{
		BaseURL:    a.Config.API.BaseURL,
		Timeout:    a.Config.API.Timeout,
		Retries:    a.Config.API.Retries,
		RetryDelay: a.Config.API.RetryDelay,
		UserAgent:  a.Config.API.UserAgent,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	var notifiers alerting.Multi
	for _, channel := range a.Config.Alerting.Channels {
		switch channel {
		case "telegram":
			if !a.Config.Alerting.Telegram.Enabled {
				continue
			}
			cfg := a.Config.Alerting.Telegram
			notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger))
		case "log":
			notifiers = append(notifiers, alerting.NewLogNotifier(a.Logger))
		default:
			a.Logger.Warn().Str("channel", channel).Msg("unknown alert channel ignored")
		}
	}
	if len(notifiers) == 0 {
		return nil
	}
	return notifiers
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, err
	}
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// openSettings opens the settings store on the configured backend. The
// returned store is the single instance for the command; pass it down.
func (a *App) openSettings(ctx context.Context) (*settings.Store, func(), error) {
	backend, closer, err := a.settingsBackend(ctx)
	if err != nil {
		return nil, nil, err
	}
	store, err := settings.Open(ctx, backend, a.Logger)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return store, closer, nil
}

func (a *App) settingsBackend(ctx context.Context) (settings.Backend, func(), error) {
	noop := func() {}
	switch a.Config.Settings.Backend {
	case config.BackendMemory:
		return settings.NewMemoryBackend(), noop, nil
	case config.BackendFile:
		return settings.NewFileBackend(a.Config.Settings.Path), noop, nil
	case config.BackendPostgres:
		store, closer, err := a.openStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		if store == nil {
			return nil, nil, storage.ErrNotConfigured
		}
		return settings.NewRepositoryBackend(store), closer, nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", a.Config.Redis.Addr, err)
		}
		return settings.NewRedisBackend(client, a.Config.Redis.Key), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown settings backend %q", a.Config.Settings.Backend)
	}
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Sport string
	// MinEVPercent overrides the default_ev_percent setting when set.
	MinEVPercent *float64
	Limit        int
}

// ExportOptions hold parameters for exporting the current view.
type ExportOptions struct {
	CSVPath       string
	PNGPath       string
	MaxRows       int
	Sport         string
	MinEVPercent  *float64
	FromSnapshots bool
}

// SimulateOptions describe a synthetic opportunity pushed through alerting.
type SimulateOptions struct {
	Title     string
	Sport     string
	EVPercent float64
	Price     float64
}

// ServeOptions configure the fixture server.
type ServeOptions struct {
	Addr      string
	Path      string
	FailFirst int
}
