package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config carries every tunable of the resolution engine. It is bound from the
// environment by the hosting service and passed in as an immutable value; no
// package-level state.
type Config struct {
	AppName    string `env:"APP_NAME" env-default:"avatar-resolution"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" env-default:"false"`

	// Graph Database (Neo4j/Memgraph)
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// PostgreSQL (Review Queue)
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"avatar"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Kafka Producer (merge events)
	KafkaBrokers        []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic    string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"entity-merge-events"`
	KafkaBatchSize      int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout   int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks   int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression    string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	KafkaEventsEnabled  bool     `env:"KAFKA_EVENTS_ENABLED" env-default:"true"`

	Resolution Resolution
}

// Resolution holds the matching and merge tunables.
type Resolution struct {
	AutoMergeThreshold float64 `env:"AUTO_MERGE_THRESHOLD" env-default:"0.9" validate:"gte=0,lte=1"`
	ReviewThreshold    float64 `env:"REVIEW_THRESHOLD" env-default:"0.6" validate:"gte=0,lte=1"`

	NameWeight         float64 `env:"NAME_MATCH_WEIGHT" env-default:"0.7" validate:"gte=0"`
	ContactWeight      float64 `env:"CONTACT_MATCH_WEIGHT" env-default:"0.9" validate:"gte=0"`
	RelationshipWeight float64 `env:"RELATIONSHIP_MATCH_WEIGHT" env-default:"0.3" validate:"gte=0"`

	// ReasonThreshold is the materiality floor above which a signal is
	// recorded as a match reason.
	ReasonThreshold float64 `env:"MATCH_REASON_THRESHOLD" env-default:"0.5" validate:"gte=0,lte=1"`

	UsePhoneticMatching  bool `env:"USE_PHONETIC_MATCHING" env-default:"true"`
	UseNicknameExpansion bool `env:"USE_NICKNAME_EXPANSION" env-default:"true"`

	MatchWorkerCount   int `env:"MATCH_WORKER_COUNT" env-default:"4" validate:"gte=1"`
	MaxComparisonPairs int `env:"MAX_COMPARISON_PAIRS" env-default:"10000" validate:"gte=1"`
	MergeMaxAttempts   int `env:"MERGE_MAX_ATTEMPTS" env-default:"3" validate:"gte=1"`
}

// DefaultResolution returns the engine defaults.
func DefaultResolution() Resolution {
	return Resolution{
		AutoMergeThreshold:   0.9,
		ReviewThreshold:      0.6,
		NameWeight:           0.7,
		ContactWeight:        0.9,
		RelationshipWeight:   0.3,
		ReasonThreshold:      0.5,
		UsePhoneticMatching:  true,
		UseNicknameExpansion: true,
		MatchWorkerCount:     4,
		MaxComparisonPairs:   10000,
		MergeMaxAttempts:     3,
	}
}

// Validate checks value ranges and threshold ordering. It runs once at
// startup, before any candidate generation.
func (r Resolution) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("invalid resolution config: %w", err)
	}
	if r.ReviewThreshold > r.AutoMergeThreshold {
		return fmt.Errorf("review_threshold %.2f must not exceed auto_merge_threshold %.2f", r.ReviewThreshold, r.AutoMergeThreshold)
	}
	return nil
}
