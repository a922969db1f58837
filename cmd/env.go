package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/matheuskafuri/blogsearch/internal/cache"
	"github.com/matheuskafuri/blogsearch/internal/config"
	"github.com/matheuskafuri/blogsearch/internal/logger"
	"github.com/matheuskafuri/blogsearch/internal/provider"
)

// env is what every command needs: config, a logger and an article provider.
// db is nil when reading from a remote API.
type env struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *cache.Cache
	provider provider.Provider
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagRemote != "" {
		cfg.Remote = flagRemote
	}
	return cfg, nil
}

// newLogger writes to the log file when the terminal belongs to the TUI and to
// stderr otherwise.
func newLogger(cfg *config.Config, toFile bool) (*zap.Logger, error) {
	if toFile {
		return logger.NewFileLogger(cfg.LogFile(), cfg.Logging.Env, cfg.Logging.Level)
	}
	return logger.NewLogger(cfg.Logging.Env, cfg.Logging.Level)
}

// openEnv builds the env for a command. local forces the SQLite store even when
// a remote is configured.
func openEnv(logToFile, local bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	l, err := newLogger(cfg, logToFile)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	e := &env{cfg: cfg, logger: l}

	if remote := cfg.RemoteURL(); remote != "" && !local {
		p, err := provider.NewHTTP(remote,
			provider.WithBaselineLimit(cfg.BaselineLimit()),
			provider.WithHTTPLogger(l.Named("remote")),
		)
		if err != nil {
			return nil, err
		}
		e.provider = p
		l.Debug("using remote provider", zap.String("url", remote))
		return e, nil
	}

	if err := e.openStore(); err != nil {
		return nil, err
	}
	return e, nil
}

// openStore opens the local SQLite store and makes it the provider.
func (e *env) openStore() error {
	db, err := cache.Open(config.CachePath())
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	e.db = db
	e.provider = provider.NewStore(db, e.cfg.BaselineLimit())
	return nil
}

func (e *env) Close() {
	if e.db != nil {
		e.db.Close()
	}
	_ = e.logger.Sync()
}
