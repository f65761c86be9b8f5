package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// Gateway selection: "http" talks to the upstream course API, "postgres"
	// serves courses from a local database.
	GatewayDriver string `envconfig:"GATEWAY_DRIVER" default:"http"`

	// Upstream course API settings (http driver)
	CourseAPIBaseURL        string `envconfig:"COURSE_API_BASE_URL"`
	CourseAPIToken          string `envconfig:"COURSE_API_TOKEN"`
	CourseAPITokenURL       string `envconfig:"COURSE_API_TOKEN_URL"`
	TokenRefreshIntervalSec int    `envconfig:"TOKEN_REFRESH_INTERVAL_SEC" default:"600"`

	// Local database settings (postgres driver)
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`

	// Wizard session settings
	AutosaveDelayMs   int `envconfig:"AUTOSAVE_DELAY_MS" default:"3000"`
	SessionIdleTTLMin int `envconfig:"SESSION_IDLE_TTL_MIN" default:"120"`

	// Publish readiness policy (UI heuristic, tunable)
	ReadinessThreshold         int `envconfig:"READINESS_THRESHOLD" default:"75"`
	ReadinessMinDescriptionLen int `envconfig:"READINESS_MIN_DESCRIPTION_LEN" default:"50"`
	ReadinessMinModules        int `envconfig:"READINESS_MIN_MODULES" default:"1"`

	// Event notification (optional)
	GCPProjectID         string `envconfig:"GCP_PROJECT_ID"`
	CourseEventsTopic    string `envconfig:"COURSE_EVENTS_TOPIC"`
	CourseAPITokenSecret string `envconfig:"COURSE_API_TOKEN_SECRET"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AutosaveDelay returns the debounce window as a duration.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMs) * time.Millisecond
}

// SessionIdleTTL returns how long an untouched session survives.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleTTLMin) * time.Minute
}

// TokenRefreshInterval returns the upstream token renewal tick.
func (c *Config) TokenRefreshInterval() time.Duration {
	return time.Duration(c.TokenRefreshIntervalSec) * time.Second
}
