package transport

import (
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultRetries = 3

// Config holds the connection parameters shared by every executor.
//
// Everything except the database, the credentials and the default headers is
// fixed once the config is built. Changes to those three only affect requests
// started afterwards: each request takes a snapshot before its first attempt.
type Config struct {
	mu sync.RWMutex

	baseURL     string
	headers     map[string]string
	username    string
	password    string
	verifyTLS   bool
	timeout     time.Duration
	retries     int
	proxies     map[string]string
	database    string
	compression bool
}

// settings is an immutable copy of a Config taken for a single request.
type settings struct {
	baseURL     string
	headers     map[string]string
	username    string
	password    string
	verifyTLS   bool
	timeout     time.Duration
	retries     int
	proxies     map[string]string
	compression bool
}

// NewConfig returns a Config for baseURL with the InfluxDB defaults: JSON
// content type, plain-text accept, three retries, no timeout and no TLS
// verification.
func NewConfig(baseURL string, opts ...Option) *Config {
	c := &Config{
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "text/plain",
		},
		retries: defaultRetries,
		proxies: map[string]string{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.proxies == nil {
		c.proxies = map[string]string{}
	}

	return c
}

// Validate reports the first problem found in the config.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.baseURL == "" {
		return ErrBaseURLRequired
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("base URL scheme must be http or https, got %q", u.Scheme)
	}

	if c.retries < 0 {
		return errors.New("retries must be non-negative")
	}

	if c.timeout < 0 {
		return errors.New("timeout must be non-negative")
	}

	for scheme, proxy := range c.proxies {
		if _, err := url.Parse(proxy); err != nil {
			return errors.Wrapf(err, "invalid %s proxy", scheme)
		}
	}

	return nil
}

func (c *Config) BaseURL() string {
	return c.baseURL
}

// Headers returns a copy of the default headers.
func (c *Config) Headers() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return copyMap(c.headers)
}

func (c *Config) Database() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.database
}

// SetDatabase changes the database used by subsequent requests.
func (c *Config) SetDatabase(database string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.database = database
}

// SwitchUser replaces both credentials at once.
func (c *Config) SwitchUser(username, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.username = username
	c.password = password
}

func (c *Config) Credentials() (username, password string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.username, c.password
}

func (c *Config) Retries() int {
	return c.retries
}

func (c *Config) Timeout() time.Duration {
	return c.timeout
}

func (c *Config) VerifyTLS() bool {
	return c.verifyTLS
}

func (c *Config) CompressionEnabled() bool {
	return c.compression
}

// Proxies returns a copy of the proxy table.
func (c *Config) Proxies() map[string]string {
	return copyMap(c.proxies)
}

func (c *Config) snapshot() settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return settings{
		baseURL:     c.baseURL,
		headers:     copyMap(c.headers),
		username:    c.username,
		password:    c.password,
		verifyTLS:   c.verifyTLS,
		timeout:     c.timeout,
		retries:     c.retries,
		proxies:     c.proxies,
		compression: c.compression,
	}
}

// proxyFor picks the proxy for scheme, falling back to the "all" entry.
func (s settings) proxyFor(scheme string) string {
	if p, ok := s.proxies[scheme]; ok {
		return p
	}

	return s.proxies["all"]
}

type fileConfig struct {
	BaseURL     string            `yaml:"base_url"`
	Headers     map[string]string `yaml:"headers"`
	Username    string            `yaml:"username"`
	Password    string            `yaml:"password"`
	VerifyTLS   bool              `yaml:"verify_tls"`
	Timeout     time.Duration     `yaml:"timeout"`
	Retries     *int              `yaml:"retries"`
	Proxies     map[string]string `yaml:"proxies"`
	Database    string            `yaml:"database"`
	Compression bool              `yaml:"compression"`
}

// ParseConfig builds a Config from YAML. Options are applied after the file
// values, so they win.
func ParseConfig(data []byte, opts ...Option) (*Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Wrap(err, "parsing transport config")
	}

	fileOpts := []Option{
		WithHeaders(fc.Headers),
		WithBasicAuth(fc.Username, fc.Password),
		WithVerifyTLS(fc.VerifyTLS),
		WithTimeout(fc.Timeout),
		WithProxies(fc.Proxies),
		WithDatabase(fc.Database),
		WithCompression(fc.Compression),
	}
	if fc.Retries != nil {
		fileOpts = append(fileOpts, WithRetries(*fc.Retries))
	}

	return NewConfig(fc.BaseURL, append(fileOpts, opts...)...), nil
}

// LoadConfig reads a YAML config file. See [ParseConfig].
func LoadConfig(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading transport config %s", path)
	}

	return ParseConfig(data, opts...)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}

	return out
}
