package helper

//nolint:revive
import (
	"benzback/config"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog/log"
)

const (
	ActionUp      = "up"
	ActionDown    = "down"
	ActionStepUp  = "step-up"
	ActionDrop    = "drop"
	ActionVersion = "version"

	defaultMigrationDir = "migrations/postgres"
)

func getDBName(config *config.Config, baseName string) string {
	if config.DB.Postgres.Prefix != "" {
		return config.DB.Postgres.Prefix + baseName
	}

	return baseName
}

// connectionString always targets the primary; migrations never run on the replica.
func connectionString(config *config.Config) string {
	write := config.DB.Postgres.Write

	query := url.Values{}
	query.Set("sslmode", write.SSLMode)

	if config.DB.Postgres.MigrationTable != "" {
		query.Set("x-migrations-table", config.DB.Postgres.MigrationTable)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(write.Username, write.Password),
		Host:     net.JoinHostPort(write.Host, write.Port),
		Path:     getDBName(config, write.Name),
		RawQuery: query.Encode(),
	}

	return dsn.String()
}

func getConnection(config *config.Config) (*migrate.Migrate, error) {
	dir := config.DB.Postgres.MigrationDir
	if dir == "" {
		dir = defaultMigrationDir
	}

	mig, err := migrate.New("file://"+dir, connectionString(config))
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}

	return mig, nil
}

func Runner(config *config.Config, action string) error {
	mig, err := getConnection(config)
	if err != nil {
		return err
	}

	defer func() {
		if sourceErr, dbErr := mig.Close(); sourceErr != nil || dbErr != nil {
			log.Warn().AnErr("source", sourceErr).AnErr("database", dbErr).Msg("Failed to close migrate instance")
		}
	}()

	switch action {
	case ActionUp:
		err = mig.Up()
	case ActionDown:
		err = mig.Steps(-1)
	case ActionStepUp:
		err = mig.Steps(1)
	case ActionDrop:
		err = mig.Down()
	case ActionVersion:
		return logVersion(mig)
	default:
		return fmt.Errorf("unknown migration action %q", action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migration %s: %w", action, err)
	}

	return logVersion(mig)
}

func logVersion(mig *migrate.Migrate) error {
	version, dirty, err := mig.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		log.Info().Msg("Database has no migrations applied")

		return nil
	}

	if err != nil {
		return fmt.Errorf("error reading migration version: %w", err)
	}

	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database schema version")

	return nil
}

func Up(config *config.Config) error {
	return Runner(config, ActionUp)
}

func StepUp(config *config.Config) error {
	return Runner(config, ActionStepUp)
}

func Down(config *config.Config) error {
	return Runner(config, ActionDown)
}

func Drop(config *config.Config) error {
	return Runner(config, ActionDrop)
}
