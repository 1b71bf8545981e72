// Package objectstore publishes materialized pipeline outputs to an
// S3-compatible bucket.
package objectstore

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variables holding credentials. Credentials are never taken
// from flags so they do not end up in shell history or process listings.
const (
	EnvAccessKey = "STAGEGRID_S3_ACCESS_KEY"
	EnvSecretKey = "STAGEGRID_S3_SECRET_KEY"
	EnvRegion    = "STAGEGRID_S3_REGION"
)

// Config describes the bucket outputs are published to.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
}

// WithEnv fills credentials and region from the environment.
func (c Config) WithEnv() Config {
	c.AccessKey = os.Getenv(EnvAccessKey)
	c.SecretKey = os.Getenv(EnvSecretKey)
	if region := os.Getenv(EnvRegion); region != "" {
		c.Region = region
	}
	if c.Region == "" {
		c.Region = "us-east-1"
	}
	return c
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return fmt.Errorf("access key is required (set %s)", EnvAccessKey)
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return fmt.Errorf("secret key is required (set %s)", EnvSecretKey)
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("bucket is required")
	}
	return nil
}
