package httputil

import (
	"fmt"
	"time"
)

type HTTPClientConfig struct {
	Timeout           time.Duration `envconfig:"SOD_HTTP_TIMEOUT" default:"30s"`
	DisableKeepAlives bool          `envconfig:"SOD_HTTP_DISABLE_KEEP_ALIVES" default:"false"`
	BearerToken       string        `envconfig:"SOD_HTTP_BEARER_TOKEN"`
	BasicAuth         BasicAuth
}

func (c *HTTPClientConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("http timeout must not be negative, got %v", c.Timeout)
	}
	if c.BasicAuth.Username != "" && len(c.BearerToken) > 0 {
		return fmt.Errorf("at most one of basic auth & bearer token must be configured")
	}
	if c.BasicAuth.Username == "" && c.BasicAuth.Password != "" {
		return fmt.Errorf("basic auth password is set without a username")
	}
	return nil
}

type BasicAuth struct {
	Username string `envconfig:"SOD_HTTP_BASIC_USERNAME"`
	Password string `envconfig:"SOD_HTTP_BASIC_PASSWORD"`
}
