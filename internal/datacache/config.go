package datacache

import "time"

// Config leaves the cache disabled while Addr is empty.
type Config struct {
	Addr     string        `envconfig:"SOD_REDIS_ADDR"`
	Password string        `envconfig:"SOD_REDIS_PASSWORD"`
	DB       int           `envconfig:"SOD_REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"SOD_REDIS_TTL" default:"24h"`
}

func (c Config) Enabled() bool {
	return c.Addr != ""
}
