package cloud

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server struct {
		Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
		Port int    `envconfig:"SERVER_PORT" default:"1234"`
	}
	DB struct {
		DSN string `envconfig:"DB_DSN"`
	}
	Blocks struct {
		// Backend selects the block store implementation, "fs" or "s3".
		Backend string `envconfig:"BLOCK_BACKEND" default:"fs"`
		Path    string `envconfig:"BLOCK_PATH" default:"blocks"`
		MaxSize int    `envconfig:"BLOCK_MAX_SIZE"`
	}
	S3 struct {
		Endpoint  string `envconfig:"S3_ENDPOINT"`
		Bucket    string `envconfig:"S3_BUCKET"`
		AccessKey string `envconfig:"S3_ACCESS_KEY"`
		SecretKey string `envconfig:"S3_SECRET_KEY"`
		Secure    bool   `envconfig:"S3_SECURE" default:"true"`
	}
	Sessions struct {
		Path string        `envconfig:"SESSION_STORE_PATH" default:"sessions"`
		TTL  time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	}
	Snowflake struct {
		WorkerID     int64 `envconfig:"WORKER_ID" default:"1"`
		DatacenterID int64 `envconfig:"DATACENTER_ID" default:"1"`
	}
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
