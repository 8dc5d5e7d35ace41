package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// SQLitePath locates the transaction/policy database file.
	SQLitePath string `env:"SQLITE_PATH" envDefault:"database/homefinder.db"`

	// MongoURI and MongoDB locate the amenity/metadata document store.
	MongoURI string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGO_DB" envDefault:"homefinder"`

	// Port the HTTP API listens on.
	Port string `env:"PORT" envDefault:"5250"`

	// Ingestion configuration
	Ingestion struct {
		// Buffered feature batches awaiting ingestion
		QueueSize int `env:"INGEST_QUEUE_SIZE" envDefault:"16"`

		// Number of concurrent ingestion workers
		WorkerCount int `env:"INGEST_WORKER_COUNT" envDefault:"2"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
