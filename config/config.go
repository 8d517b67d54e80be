package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Server struct {
		Env      string `envconfig:"ENV"`
		LogLevel string `envconfig:"LOG_LEVEL"`
		Port     string `envconfig:"PORT"`
		Host     string `envconfig:"HOST"`
		Shutdown struct {
			CleanupPeriodSeconds int64 `envconfig:"CLEANUP_PERIOD_SECONDS"`
			GracePeriodSeconds   int64 `envconfig:"GRACE_PERIOD_SECONDS"`
		} `envconfig:"SHUTDOWN"`
	} `envconfig:"SERVER"`

	App struct {
		Name     string `envconfig:"APP_NAME"`
		Timezone string `envconfig:"TIMEZONE"`
		CORS     struct {
			AllowCredentials bool     `envconfig:"ALLOW_CREDENTIALS"`
			AllowedHeaders   []string `envconfig:"ALLOWED_HEADERS"`
			AllowedMethods   []string `envconfig:"ALLOWED_METHODS"`
			AllowedOrigins   []string `envconfig:"ALLOWED_ORIGINS"`
			Enable           bool     `envconfig:"ENABLE"`
			MaxAgeSeconds    int      `envconfig:"MAX_AGE_SECONDS"`
		} `envconfig:"CORS"`
		RateLimiter struct {
			Enable        bool `envconfig:"ENABLE"`
			MaxRequests   int  `envconfig:"MAX_REQUESTS"`
			WindowSeconds int  `envconfig:"WINDOW_SECONDS"`
		} `envconfig:"RATE_LIMITER"`
		APIKey string `envconfig:"API_KEY"`
	} `envconfig:"APP"`

	Cache struct {
		Redis struct {
			Primary struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Password string `envconfig:"PASSWORD"`
				DB       int    `envconfig:"DB"`
			} `envconfig:"PRIMARY"`
		} `envconfig:"REDIS"`
		TTL int `envconfig:"TTL"`
	} `envconfig:"CACHE"`

	JWT struct {
		AccessSecret    string `envconfig:"ACCESS_SECRET"`
		AccessExpireMin int    `envconfig:"ACCESS_EXPIRE_MIN"`
	} `envconfig:"JWT"`

	DB struct {
		Postgres struct {
			MaxRetry           int    `envconfig:"MAX_RETRY"            default:"5"`
			RetryWaitTime      int    `envconfig:"RETRY_WAIT_TIME"      default:"2"`
			TxMaxRetry         int    `envconfig:"TX_MAX_RETRY"         default:"3"`
			TxRetryBaseMs      int    `envconfig:"TX_RETRY_BASE_MS"     default:"20"`
			MaxOpenConnections int    `envconfig:"MAX_OPEN_CONNECTIONS" default:"10"`
			MaxIdleConnections int    `envconfig:"MAX_IDLE_CONNECTIONS" default:"10"`
			MigrationTable     string `envconfig:"MIGRATION_TABLE"      default:"schema_migrations"`
			MigrationDir       string `envconfig:"MIGRATION_DIR"        default:"migrations/postgres"`
			AutoMigrate        bool   `envconfig:"AUTO_MIGRATE"`
			Prefix             string `envconfig:"PREFIX"`
			Read               struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"READ"`
			Write struct {
				Host     string `envconfig:"HOST"`
				Port     string `envconfig:"PORT"`
				Username string `envconfig:"USER"`
				Password string `envconfig:"PASSWORD"`
				Name     string `envconfig:"NAME"`
				Timezone string `envconfig:"TIMEZONE"`
				SSLMode  string `envconfig:"SSL_MODE"`
			} `envconfig:"WRITE"`
		} `envconfig:"POSTGRES"`
	} `envconfig:"DB"`

	Kafka struct {
		Brokers []string `envconfig:"BROKERS"`
		SASL    struct {
			Username string `envconfig:"USERNAME"`
			Password string `envconfig:"PASSWORD"`
		} `envconfig:"SASL"`
		Topic struct {
			Notification string `envconfig:"NOTIFICATION" default:"booking.notifications"`
		} `envconfig:"TOPIC"`
	} `envconfig:"KAFKA"`

	Booking struct {
		TaxRate                  float64 `envconfig:"TAX_RATE"                   default:"0.08"`
		AllowedMileage           float64 `envconfig:"ALLOWED_MILEAGE"            default:"200"`
		MileageRate              float64 `envconfig:"MILEAGE_RATE"               default:"0.5"`
		FuelRatePerUnit          float64 `envconfig:"FUEL_RATE_PER_UNIT"         default:"3.1"`
		CleaningFee              float64 `envconfig:"CLEANING_FEE"               default:"75"`
		CleaningPolicy           string  `envconfig:"CLEANING_POLICY"            default:"legacy"`
		AssignmentWindowSeconds  int     `envconfig:"ASSIGNMENT_WINDOW_SECONDS"  default:"300"`
		BroadcastTopicPrefix     string  `envconfig:"BROADCAST_TOPIC_PREFIX"     default:"benzback"`
		SettlementArchiveBucket  string  `envconfig:"SETTLEMENT_ARCHIVE_BUCKET"`
		SettlementArchiveDirName string  `envconfig:"SETTLEMENT_ARCHIVE_DIR"     default:"settlements"`
	} `envconfig:"BOOKING"`

	Outbox struct {
		BatchSize   int `envconfig:"BATCH_SIZE"   default:"50"`
		MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"5"`
	} `envconfig:"OUTBOX"`

	Presence struct {
		Key        string `envconfig:"KEY"         default:"presence:drivers"`
		TTLSeconds int    `envconfig:"TTL_SECONDS" default:"90"`
	} `envconfig:"PRESENCE"`

	Scheduler struct {
		RelayOutbox          string `envconfig:"RELAY_OUTBOX"           default:"*/2 * * * * *"`
		ExpireDriverRequests string `envconfig:"EXPIRE_DRIVER_REQUESTS" default:"*/30 * * * * *"`
		MarkOverdueBookings  string `envconfig:"MARK_OVERDUE_BOOKINGS"  default:"0 */10 * * * *"`
		SweepPresence        string `envconfig:"SWEEP_PRESENCE"         default:"*/30 * * * * *"`
	} `envconfig:"SCHEDULER"`

	External struct {
		Otel struct {
			Endpoint    string  `envconfig:"ENDPOINT"`
			SampleRatio float64 `envconfig:"SAMPLE_RATIO" default:"1"`
		} `envconfig:"OTEL"`
		S3 struct {
			Region       string `envconfig:"REGION"`
			AccessKey    string `envconfig:"ACCESS_KEY"`
			SecretKey    string `envconfig:"SECRET_KEY"`
			APIEndpoint  string `envconfig:"API_ENDPOINT"`
			PublicDomain string `envconfig:"PUBLIC_DOMAIN"`
			BucketName   string `envconfig:"BUCKET_NAME"`
		} `envconfig:"S3"`
	} `envconfig:"EXTERNAL"`
}

var (
	conf        Config
	once        sync.Once
	initialized bool
)

func Init() error {
	var err error

	once.Do(func() {
		err = godotenv.Load(".env")
		if err != nil {
			log.Warn().Err(err).Msg("Could not load .env file, continuing with existing environment variables")
		} else {
			log.Info().Msg("Successfully loaded variables from .env file into environment")
		}

		err = envconfig.Process("", &conf)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to process environment variables")
		}

		initialized = true

		log.Info().Msg("Service configuration initialized successfully")
	})

	if err != nil {
		return fmt.Errorf("loading .env file: %w", err)
	}

	return nil
}

func Get() *Config {
	if !initialized {
		if err := Init(); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize configuration")
		}
	}

	return &conf
}
