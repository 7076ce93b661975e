package main

import (
	"MeetupBot/auth"
	"MeetupBot/clock"
	"MeetupBot/handler"
	"MeetupBot/repo"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-telegram/bot"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// a missing .env file is fine, the environment may be set directly
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	persister, closePersister, err := openPersister(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closePersister()

	store := repo.NewStore(ctx, persister, log)
	c := clock.Real()
	verifier := auth.NewVerifier(cfg.SpeakerPassword, cfg.MaxPasswordTries, cfg.PasswordBlockWindow, c)
	h := handler.NewConferenceBot(store, verifier, c, cfg.AdminID, log)

	b, err := newBot(cfg.Token, h, log)
	if err != nil {
		return fmt.Errorf("error creating bot: %w", err)
	}

	log.Info().Str("backend", cfg.StoreBackend).Int64("admin_id", cfg.AdminID).Msg("bot started")
	b.Start(ctx)
	log.Info().Msg("bot stopped")
	return nil
}

// newBot wires the handler into a bot that processes updates one at a
// time, in the order getUpdates delivered them. Handlers have returned by
// the time Start does.
func newBot(token string, h *handler.ConferenceBot, log zerolog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	opts = append([]bot.Option{
		bot.WithDefaultHandler(h.Handler),
		bot.WithNotAsyncHandlers(),
		bot.WithErrorsHandler(func(err error) {
			log.Error().Err(err).Msg("telegram error")
		}),
	}, opts...)
	return bot.New(token, opts...)
}

// openPersister builds the configured backend. The returned func releases
// it and is never nil.
func openPersister(ctx context.Context, cfg Config, log zerolog.Logger) (repo.Persister, func(), error) {
	switch cfg.StoreBackend {
	case backendBadger:
		db, err := badger.Open(badger.DefaultOptions(cfg.BadgerPath).WithLoggingLevel(badger.WARNING))
		if err != nil {
			return nil, nil, fmt.Errorf("error opening badger at %s: %w", cfg.BadgerPath, err)
		}
		closeDB := func() {
			log.Info().Msg("closing badger")
			if err := db.Close(); err != nil {
				log.Error().Err(err).Msg("error closing badger")
			}
		}
		return repo.NewBadgerPersister(db), closeDB, nil

	case backendFirebase:
		fc, err := repo.NewFirebaseConnector(ctx, cfg.FirebaseKeyPath, cfg.FirebaseDatabaseURL, cfg.FirebaseRootRef)
		if err != nil {
			return nil, nil, fmt.Errorf("error initializing firebase: %w", err)
		}
		return fc, func() {}, nil

	default:
		return repo.NewFilePersister(cfg.DBPath), func() {}, nil
	}
}
