package transport

import (
	"strings"
	"time"
)

// Option configures a [Config] at construction time.
type Option func(*Config)

// WithBaseURL replaces the base URL, e.g. to override a config file.
func WithBaseURL(baseURL string) Option {
	return func(c *Config) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithRetries(count int) Option {
	return func(c *Config) {
		if count >= 0 {
			c.retries = count
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout >= 0 {
			c.timeout = timeout
		}
	}
}

func WithVerifyTLS(verify bool) Option {
	return func(c *Config) {
		c.verifyTLS = verify
	}
}

// WithHeaders replaces the default headers. A nil map is ignored.
func WithHeaders(headers map[string]string) Option {
	return func(c *Config) {
		if headers == nil {
			return
		}

		c.headers = make(map[string]string, len(headers))
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithRequestHeader adds a single default header.
func WithRequestHeader(header, value string) Option {
	return func(c *Config) {
		header = strings.TrimSpace(header)

		if header == "" {
			return
		}

		c.headers[header] = value
	}
}

func WithBasicAuth(username, password string) Option {
	return func(c *Config) {
		c.username = username
		c.password = password
	}
}

// WithProxies sets proxy URLs keyed by scheme ("http", "https") or "all".
func WithProxies(proxies map[string]string) Option {
	return func(c *Config) {
		c.proxies = make(map[string]string, len(proxies))
		for k, v := range proxies {
			c.proxies[k] = v
		}
	}
}

func WithDatabase(database string) Option {
	return func(c *Config) {
		c.database = database
	}
}

// WithCompression enables gzip request bodies and the matching
// Content-Encoding and Accept-Encoding headers. Only the cooperative
// executor honours it.
func WithCompression(enabled bool) Option {
	return func(c *Config) {
		c.compression = enabled
	}
}
