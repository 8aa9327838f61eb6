package dynamo

import "time"

// Config holds connection settings for the DynamoDB driver.
type Config struct {
	// Region is the AWS region. Empty uses the SDK default chain.
	Region string `env:"REGION"`

	// Endpoint overrides the service endpoint (e.g. DynamoDB Local).
	Endpoint string `env:"ENDPOINT"`

	// Profile selects a shared config profile.
	Profile string `env:"PROFILE"`

	// AccessKeyID and SecretAccessKey set static credentials when both are present.
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`

	// TablePrefix is prepended to every collection name to form the table name.
	// Default: "" (no prefix)
	TablePrefix string `env:"TABLE_PREFIX"`

	// CreateTimeout bounds how long CreateCollection waits for a new table
	// to become active.
	// Default: 2m
	CreateTimeout time.Duration `env:"CREATE_TIMEOUT"`
}

// DefaultConfig returns defaults suitable for a single-region deployment.
func DefaultConfig() Config {
	return Config{
		CreateTimeout: 2 * time.Minute,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.CreateTimeout <= 0 {
		c.CreateTimeout = 2 * time.Minute
	}
}
