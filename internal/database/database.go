package database

import (
	"context"
	"fmt"
	"time"

	"kasa/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// ApplicationName tags kasa sessions in pg_stat_activity.
const ApplicationName = "kasa-api"

const (
	pingAttempts = 5
	pingBackoff  = 500 * time.Millisecond
)

// NewPool opens the catalog and order database described by cfg.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	return NewPoolFromURL(ctx, cfg.ConnectionString(), cfg, logger)
}

// NewPoolFromURL opens a pool for connString sized by cfg. The database is
// pinged a few times before giving up so the API can start alongside it.
func NewPoolFromURL(ctx context.Context, connString string, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger = logger.With().Str("component", "database").Logger()

	poolConfig, err := newPoolConfig(connString, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Uint16("port", poolConfig.ConnConfig.Port).
		Str("database", poolConfig.ConnConfig.Database).
		Int32("max_connections", poolConfig.MaxConns).
		Int32("min_connections", poolConfig.MinConns).
		Msg("opening catalog database")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func newPoolConfig(connString string, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	poolConfig.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   queryLogger{logger: logger},
		LogLevel: traceLevel(logger.GetLevel()),
	}

	return poolConfig, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			logger.Info().Int("attempt", attempt).Msg("catalog database ready")
			return nil
		}

		logger.Warn().Err(err).Int("attempt", attempt).Msg("database not reachable yet")

		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to ping database: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * pingBackoff):
		}
	}
	return fmt.Errorf("failed to ping database after %d attempts: %w", pingAttempts, err)
}

// queryLogger writes pgx trace events to zerolog.
type queryLogger struct {
	logger zerolog.Logger
}

func (l queryLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	// args may hold customer details.
	delete(data, "args")

	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelError:
		event = l.logger.Error()
	case tracelog.LogLevelWarn:
		event = l.logger.Warn()
	case tracelog.LogLevelInfo:
		event = l.logger.Debug()
	default:
		event = l.logger.Trace()
	}
	event.Fields(data).Msg(msg)
}

// traceLevel keeps query tracing quiet unless the logger runs at debug or
// below.
func traceLevel(level zerolog.Level) tracelog.LogLevel {
	switch {
	case level <= zerolog.TraceLevel:
		return tracelog.LogLevelTrace
	case level <= zerolog.DebugLevel:
		return tracelog.LogLevelInfo
	default:
		return tracelog.LogLevelWarn
	}
}
