// Package config loads and validates the server's YAML configuration.
// It applies defaults so the daemon can rely on fully populated values.
package config

import (
	"errors"
	"net/netip"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alessiodelgadillo/Worth/internal/logging"
)

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ServerConfig holds the request and subscription listener settings.
type ServerConfig struct {
	Bind       string `yaml:"bind"`
	Port       int    `yaml:"port"`
	NotifyPort int    `yaml:"notify_port"`
}

// ChatConfig holds the multicast chat settings.
type ChatConfig struct {
	Port          int    `yaml:"port"`
	MulticastBase string `yaml:"multicast_base"`
}

// Config mirrors the worth.yaml schema.
type Config struct {
	Log     LogConfig    `yaml:"log"`
	DataDir string       `yaml:"data_dir"`
	Server  ServerConfig `yaml:"server"`
	Chat    ChatConfig   `yaml:"chat"`
}

// Load reads a YAML config file, applies defaults, and validates it.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	return c, nil
}

// Default returns the configuration used when no file is given. The
// port numbers are the ones the service has always used.
func Default() Config {
	var c Config
	applyDefaults(&c)
	return c
}

func applyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "./recovery"
	}
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5678
	}
	if c.Server.NotifyPort == 0 {
		c.Server.NotifyPort = 4567
	}
	if c.Chat.Port == 0 {
		c.Chat.Port = 4000
	}
	if c.Chat.MulticastBase == "" {
		c.Chat.MulticastBase = "239.0.0.0"
	}
}

func validate(c *Config) error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.New("log.level is invalid")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if _, err := netip.ParseAddr(c.Server.Bind); err != nil {
		return errors.New("server.bind is invalid")
	}
	for _, p := range []int{c.Server.Port, c.Server.NotifyPort, c.Chat.Port} {
		if p <= 0 || p > 65535 {
			return errors.New("port is out of range")
		}
	}
	if c.Server.Port == c.Server.NotifyPort {
		return errors.New("server.port and server.notify_port must differ")
	}
	base, err := netip.ParseAddr(c.Chat.MulticastBase)
	if err != nil || !base.Is4() || !base.IsMulticast() {
		return errors.New("chat.multicast_base must be an IPv4 multicast address")
	}
	return nil
}
