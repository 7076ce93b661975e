package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const (
	backendFile     = "file"
	backendBadger   = "badger"
	backendFirebase = "firebase"
)

type Config struct {
	Token           string `env:"TOKEN,required=true" validate:"required"`
	AdminID         int64  `env:"ADMIN_ID,required=true" validate:"gt=0"`
	SpeakerPassword string `env:"SPEAKER_PASSWORD,required=true" validate:"required"`

	StoreBackend        string `env:"STORE_BACKEND,default=file" validate:"oneof=file badger firebase"`
	DBPath              string `env:"DB_PATH,default=db.json" validate:"required_if=StoreBackend file"`
	BadgerPath          string `env:"BADGER_PATH,default=data/badger" validate:"required_if=StoreBackend badger"`
	FirebaseKeyPath     string `env:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH" validate:"required_if=StoreBackend firebase"`
	FirebaseDatabaseURL string `env:"FIREBASE_DATABASE_URL" validate:"required_if=StoreBackend firebase"`
	FirebaseRootRef     string `env:"FIREBASE_ROOT_REF,default=meetup" validate:"required"`

	MaxPasswordTries    int           `env:"MAX_PASSWORD_TRIES,default=3" validate:"gte=1"`
	PasswordBlockWindow time.Duration `env:"PASSWORD_BLOCK_WINDOW,default=5m" validate:"gt=0"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
	LogJSON  bool   `env:"LOG_JSON,default=false"`
}

// loadConfig reads the process environment. A .env file, if any, must
// already be loaded.
func loadConfig() (Config, error) {
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string, json bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	var log zerolog.Logger
	if json {
		log = zerolog.New(os.Stdout)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime})
	}
	return log.Level(lvl).With().Timestamp().Logger(), nil
}
