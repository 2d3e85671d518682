package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds the runtime configuration for a single monitor run; it is
// built once at startup and passed by reference into the services
type Config struct {
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID" required:"true" desc:"AWS access key id"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY" required:"true" desc:"AWS secret access key"`
	AWSSessionToken    string `envconfig:"AWS_SESSION_TOKEN" required:"true" desc:"AWS session token"`
	AWSRegion          string `envconfig:"AWS_REGION" default:"eu-west-1" desc:"AWS region hosting the pipelines"`

	DefaultFilter      string        `envconfig:"MONITOR_DEFAULT_FILTER" default:"kulu" desc:"Filter applied when --filters is not passed"`
	RequestTimeout     time.Duration `envconfig:"MONITOR_REQUEST_TIMEOUT" default:"30s" desc:"Timeout per remote call"`
	MaxParallel        int           `envconfig:"MONITOR_MAX_PARALLEL" default:"4" desc:"Number of pipelines enriched concurrently; 1 disables parallelism"`
	CommitMessageWidth int           `envconfig:"MONITOR_COMMIT_WIDTH" default:"50" desc:"Width at which commit messages get truncated"`
}

// MustParse reads the configuration from the environment, printing usage and
// exiting when required variables are missing
func MustParse() Config {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		_ = envconfig.Usage("", &c)
		log.Fatal().Msg(err.Error())
	}

	return c
}
