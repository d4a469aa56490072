package config

import (
	"fmt"
	"strings"
	"time"
)

// APIConfig represents the configuration of the REST API
type APIConfig struct {
	Enabled         bool
	ListenAddress   string
	AdminKey        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ArtifactsConfig selects where trained models are kept
type ArtifactsConfig struct {
	Type       string
	Dir        string
	SQLitePath string
	MySQLDSN   string
}

// CacheConfig represents the prediction cache configuration
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	RedisURL         string
	KeyPrefix        string
}

// ServerConfig represents the mail front-end configuration
type ServerConfig struct {
	FilterType     string
	ListenAddress  string
	BlockSpam      bool
	Timeout        time.Duration
	SpamHeader     string
	ScoreHeader    string
	ReasonHeader   string
	PostfixEnabled bool
	PostfixAddress string
	PostfixPort    int
	ModifySubject  bool
	SubjectPrefix  string
}

// GetAPI returns the API configuration
func (c *Config) GetAPI() (APIConfig, error) {
	cfg := APIConfig{
		Enabled:       c.GetBool("api.enabled"),
		ListenAddress: c.GetString("api.listen_address"),
		AdminKey:      c.GetString("api.admin_key"),
	}
	var err error
	if cfg.ReadTimeout, err = c.GetDuration("api.read_timeout"); err != nil {
		return cfg, err
	}
	if cfg.WriteTimeout, err = c.GetDuration("api.write_timeout"); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = c.GetDuration("api.shutdown_timeout"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetArtifacts returns the artifact store configuration
func (c *Config) GetArtifacts() ArtifactsConfig {
	return ArtifactsConfig{
		Type:       strings.ToLower(c.GetString("artifacts.type")),
		Dir:        c.GetString("artifacts.dir"),
		SQLitePath: c.GetString("artifacts.sqlite_path"),
		MySQLDSN:   c.GetString("artifacts.mysql_dsn"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	cfg := CacheConfig{
		Enabled:   c.GetBool("cache.enabled"),
		Type:      strings.ToLower(c.GetString("cache.type")),
		RedisURL:  c.GetString("cache.redis_url"),
		KeyPrefix: c.GetString("cache.key_prefix"),
	}
	var err error
	if cfg.TTL, err = c.GetDuration("cache.ttl"); err != nil {
		return cfg, err
	}
	if cfg.CleanupFrequency, err = c.GetDuration("cache.cleanup_frequency"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetServer returns the mail front-end configuration
func (c *Config) GetServer() (ServerConfig, error) {
	cfg := ServerConfig{
		FilterType:     strings.ToLower(c.GetString("server.filter_type")),
		ListenAddress:  c.GetString("server.listen_address"),
		BlockSpam:      c.GetBool("server.block_spam"),
		SpamHeader:     c.GetString("server.headers.spam"),
		ScoreHeader:    c.GetString("server.headers.score"),
		ReasonHeader:   c.GetString("server.headers.reason"),
		PostfixEnabled: c.GetBool("server.postfix.enabled"),
		PostfixAddress: c.GetString("server.postfix.address"),
		PostfixPort:    c.GetInt("server.postfix.port"),
		ModifySubject:  c.GetBool("server.modify_subject"),
		SubjectPrefix:  c.GetString("server.subject_prefix"),
	}
	var err error
	if cfg.Timeout, err = c.GetDuration("server.timeout"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// PostfixReinjectAddress is where filtered mail goes back to Postfix, or
// empty when reinjection is disabled
func (s ServerConfig) PostfixReinjectAddress() string {
	if !s.PostfixEnabled {
		return ""
	}
	return fmt.Sprintf("%s:%d", s.PostfixAddress, s.PostfixPort)
}

// DatasetPath is the default corpus for training
func (c *Config) DatasetPath() string {
	return c.GetString("training.dataset_path")
}

// WhitelistedDomains lists sender domains that bypass the models
func (c *Config) WhitelistedDomains() []string {
	return c.GetStringSlice("spam.whitelisted_domains")
}
