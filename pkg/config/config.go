// Package config loads the edgecheck policy file: the required sets and
// constants the checks compare against, per-variant interface overrides,
// site labels and connection settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/edgecheck-network/edgecheck/pkg/compliance"
	"github.com/edgecheck-network/edgecheck/pkg/profile"
	"github.com/edgecheck-network/edgecheck/pkg/session"
	"github.com/edgecheck-network/edgecheck/pkg/util"
)

// Defaults for connection and run settings.
const (
	defaultWorkers           = 4
	defaultDNSTimeout        = 3 * time.Second
	defaultRedisTTL          = 24 * time.Hour
	defaultJournalMaxSize    = 10 << 20
	defaultJournalMaxBackups = 5
)

// SSHConfig configures device sessions.
type SSHConfig struct {
	Port           int           `yaml:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	PingFirst      bool          `yaml:"ping_first"`
}

// RedisConfig points remediation walks at a shared visited set. An empty
// address keeps the visited set in process.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// JournalConfig configures journal rotation.
type JournalConfig struct {
	MaxSize    int64 `yaml:"max_size"`
	MaxBackups int   `yaml:"max_backups"`
}

// VariantOverride replaces parts of a variant's interface rules. Empty fields
// keep the built-in value.
type VariantOverride struct {
	LANDesignator  string   `yaml:"lan_designator"`
	WANDesignators []string `yaml:"wan_designators"`
	Excluded       []string `yaml:"excluded_interfaces"`
}

// Config is the whole policy file.
type Config struct {
	Policy     compliance.Policy          `yaml:"policy"`
	Variants   map[string]VariantOverride `yaml:"variants"`
	Sites      map[string]string          `yaml:"sites"`
	SSH        SSHConfig                  `yaml:"ssh"`
	DNSServers []string                   `yaml:"dns_servers"`
	DNSTimeout time.Duration              `yaml:"dns_timeout"`
	Redis      RedisConfig                `yaml:"redis"`
	Journal    JournalConfig              `yaml:"journal"`
	// Workers bounds concurrent device sessions.
	Workers int `yaml:"workers"`
	// Verify re-reads ACLs after each remediation push.
	Verify *bool `yaml:"verify"`
}

// Default returns the configuration of the reference deployment.
func Default() *Config {
	opts := session.DefaultOptions()
	c := &Config{
		Policy: compliance.DefaultPolicy(),
		SSH: SSHConfig{
			Port:           opts.Port,
			ConnectTimeout: opts.ConnectTimeout,
			CommandTimeout: opts.CommandTimeout,
		},
	}
	applyDefaults(c)
	return c
}

// Load reads the policy file at path. Keys absent from the file keep their
// default values; an empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// applyDefaults fills zero values left by an explicit empty key.
func applyDefaults(c *Config) {
	def := session.DefaultOptions()
	if c.SSH.Port == 0 {
		c.SSH.Port = def.Port
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = def.ConnectTimeout
	}
	if c.SSH.CommandTimeout == 0 {
		c.SSH.CommandTimeout = def.CommandTimeout
	}
	if c.DNSTimeout == 0 {
		c.DNSTimeout = defaultDNSTimeout
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = defaultRedisTTL
	}
	if c.Journal.MaxSize == 0 {
		c.Journal.MaxSize = defaultJournalMaxSize
	}
	if c.Journal.MaxBackups == 0 {
		c.Journal.MaxBackups = defaultJournalMaxBackups
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.Verify == nil {
		verify := true
		c.Verify = &verify
	}
	if c.Policy.FlowExporters.MinCount == 0 {
		c.Policy.FlowExporters.MinCount = 2
	}
}

// Validate checks the values a run cannot recover from.
func (c *Config) Validate() error {
	var errs []error
	if c.Policy.VRRPPriority == "" {
		errs = append(errs, errors.New("policy.vrrp_priority is required"))
	}
	for _, acl := range c.Policy.SNMPACLs {
		if acl.Name == "" {
			errs = append(errs, errors.New("policy.snmp_acls: ACL name is required"))
		}
		for _, h := range acl.Hosts {
			if !util.IsValidIPv4(h) {
				errs = append(errs, fmt.Errorf("policy.snmp_acls %s: invalid host %q", acl.Name, h))
			}
		}
	}
	for name := range c.Variants {
		if _, err := profile.ParseVariant(name); err != nil {
			errs = append(errs, fmt.Errorf("variants: %w", err))
		}
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		errs = append(errs, fmt.Errorf("ssh.port %d is out of range", c.SSH.Port))
	}
	return errors.Join(errs...)
}

// Capabilities returns the capability table with the variant overrides applied.
func (c *Config) Capabilities() map[profile.Variant]profile.Capabilities {
	table := profile.DefaultCapabilities()
	for name, o := range c.Variants {
		v, err := profile.ParseVariant(name)
		if err != nil {
			continue
		}
		caps := table[v]
		if o.LANDesignator != "" {
			caps.LANDesignator = o.LANDesignator
		}
		if len(o.WANDesignators) > 0 {
			caps.WANDesignators = o.WANDesignators
		}
		if len(o.Excluded) > 0 {
			caps.Excluded = o.Excluded
		}
		table[v] = caps
	}
	return table
}

// SessionOptions returns the dial options.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Port:           c.SSH.Port,
		ConnectTimeout: c.SSH.ConnectTimeout,
		CommandTimeout: c.SSH.CommandTimeout,
		PingFirst:      c.SSH.PingFirst,
	}
}

// VerifyEnabled reports whether remediation re-reads ACLs after a push.
func (c *Config) VerifyEnabled() bool {
	return c.Verify == nil || *c.Verify
}
