package postgres

//nolint:revive
import (
	"benzback/config"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	defaultMaxOpenConnection = 10
	defaultMaxIdleConnection = 10
	defaultConnMaxLifetime   = 30 * time.Minute
	defaultConnectRetryWait  = time.Second
)

// Connection keeps separate pools for the primary and the read replica. Anything that
// locks rows must go through Write.
type Connection struct {
	Read  *sqlx.DB
	Write *sqlx.DB
}

type endpoint struct {
	name     string
	username string
	password string
	host     string
	port     string
	dbName   string
	sslMode  string
}

func (e endpoint) descriptor() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		e.username,
		e.password,
		net.JoinHostPort(e.host, e.port),
		e.dbName,
		e.sslMode,
	)
}

func New(config *config.Config) *Connection {
	pg := config.DB.Postgres

	write := endpoint{
		name:     "write",
		username: pg.Write.Username,
		password: pg.Write.Password,
		host:     pg.Write.Host,
		port:     pg.Write.Port,
		dbName:   getDBName(config, pg.Write.Name),
		sslMode:  pg.Write.SSLMode,
	}

	read := endpoint{
		name:     "read",
		username: pg.Read.Username,
		password: pg.Read.Password,
		host:     pg.Read.Host,
		port:     pg.Read.Port,
		dbName:   getDBName(config, pg.Read.Name),
		sslMode:  pg.Read.SSLMode,
	}

	conn := &Connection{
		Write: connect(config, write),
	}

	// Without a replica configured reads share the primary pool.
	if read.host == "" {
		conn.Read = conn.Write
	} else {
		conn.Read = connect(config, read)
	}

	return conn
}

// Close releases both pools.
func (c *Connection) Close() error {
	if c.Read != nil && c.Read != c.Write {
		if err := c.Read.Close(); err != nil {
			return fmt.Errorf("failed to close read pool: %w", err)
		}
	}

	if c.Write != nil {
		if err := c.Write.Close(); err != nil {
			return fmt.Errorf("failed to close write pool: %w", err)
		}
	}

	return nil
}

func getDBName(config *config.Config, baseName string) string {
	if config.DB.Postgres.Prefix != "" {
		return config.DB.Postgres.Prefix + baseName
	}

	return baseName
}

// connect dials with a constant backoff and exits the process when the database never
// becomes reachable.
func connect(config *config.Config, target endpoint) *sqlx.DB {
	pg := config.DB.Postgres

	wait := time.Duration(pg.RetryWaitTime) * time.Second
	if wait <= 0 {
		wait = defaultConnectRetryWait
	}

	backoff := retry.WithMaxRetries(uint64(max(pg.MaxRetry-1, 0)), retry.NewConstant(wait)) //nolint:gosec

	var db *sqlx.DB

	attempt := 0

	err := retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		attempt++

		sqlDB, err := sqlx.ConnectContext(ctx, "postgres", target.descriptor())
		if err != nil {
			log.Error().
				Err(err).
				Str("name", target.name).
				Str("host", target.host).
				Str("dbName", target.dbName).
				Int("attempt", attempt).
				Msg("Failed connecting to database, retrying")

			return retry.RetryableError(err)
		}

		db = sqlDB

		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Str("name", target.name).Msg("Could not connect to database")
	}

	db.SetMaxOpenConns(orDefault(pg.MaxOpenConnections, defaultMaxOpenConnection))
	db.SetMaxIdleConns(orDefault(pg.MaxIdleConnections, defaultMaxIdleConnection))
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	log.Info().
		Str("name", target.name).
		Str("host", target.host).
		Str("port", target.port).
		Str("dbName", target.dbName).
		Msg("Connected to database")

	return db
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}

	return fallback
}
