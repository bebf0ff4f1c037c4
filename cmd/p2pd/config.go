package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/service"
)

// Config holds the daemon configuration. Values come from the defaults,
// then the optional YAML file, then flags given on the command line.
type Config struct {
	ConfigFile string `yaml:"-"`

	Interface  string `yaml:"interface"`
	CtrlDir    string `yaml:"ctrl_dir"`
	DeviceType string `yaml:"device_type"`
	DeviceName string `yaml:"device_name"`
	NamePrefix string `yaml:"name_prefix"`
	StateFile  string `yaml:"state_file"`

	ProtocolLog string `yaml:"protocol_log"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`

	Interactive bool `yaml:"interactive"`
	MDNSMirror  bool `yaml:"mdns_mirror"`

	GroupCreatingTimeout time.Duration `yaml:"group_creating_timeout"`
	DiscoveryTimeout     time.Duration `yaml:"discovery_timeout"`

	NetConfig netcfg.CommandConfig `yaml:"netcfg"`
}

func defaultConfig() Config {
	return Config{
		Interface:            service.DefaultInterface,
		CtrlDir:              "/var/run/wpa_supplicant",
		DeviceType:           service.DefaultDeviceType,
		NamePrefix:           service.DefaultDeviceNamePrefix,
		StateFile:            "/var/lib/p2pd/state.json",
		LogLevel:             "info",
		GroupCreatingTimeout: service.DefaultGroupCreatingTimeout,
		DiscoveryTimeout:     service.DefaultDiscoveryTimeout,
		NetConfig:            netcfg.DefaultCommandConfig(),
	}
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("p2pd", flag.ContinueOnError)
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "Configuration file path (YAML)")
	fs.StringVar(&cfg.Interface, "iface", cfg.Interface, "P2P device interface")
	fs.StringVar(&cfg.CtrlDir, "ctrl-dir", cfg.CtrlDir, "wpa_supplicant control socket directory")
	fs.StringVar(&cfg.DeviceType, "device-type", cfg.DeviceType, "WSC primary device type")
	fs.StringVar(&cfg.DeviceName, "name", cfg.DeviceName, "Device name (stored on first start)")
	fs.StringVar(&cfg.NamePrefix, "name-prefix", cfg.NamePrefix, "Prefix of the generated device name")
	fs.StringVar(&cfg.StateFile, "state", cfg.StateFile, "State file path (empty to keep state in memory)")
	fs.StringVar(&cfg.ProtocolLog, "plog", cfg.ProtocolLog, "Protocol log file (.plog)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.Interactive, "interactive", cfg.Interactive, "Run the interactive console")
	fs.BoolVar(&cfg.MDNSMirror, "mdns", cfg.MDNSMirror, "Mirror local Bonjour services over mDNS on the group interface")
	fs.DurationVar(&cfg.GroupCreatingTimeout, "group-timeout", cfg.GroupCreatingTimeout, "Connection attempt timeout")
	fs.DurationVar(&cfg.DiscoveryTimeout, "discovery-timeout", cfg.DiscoveryTimeout, "Peer discovery timeout")
	return fs
}

// loadConfig parses args. When -config names a file, the file is decoded
// over the defaults and args are parsed again on top of it.
func loadConfig(args []string) (Config, error) {
	cfg := defaultConfig()
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.ConfigFile == "" {
		return cfg, cfg.validate()
	}

	base := defaultConfig()
	if err := readConfigFile(cfg.ConfigFile, &base); err != nil {
		return Config{}, err
	}
	base.ConfigFile = cfg.ConfigFile
	if err := newFlagSet(&base).Parse(args); err != nil {
		return Config{}, err
	}
	return base, base.validate()
}

func readConfigFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Interface == "" {
		return errors.New("interface must not be empty")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.GroupCreatingTimeout <= 0 || c.DiscoveryTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	return nil
}

// CtrlPath is the supplicant control socket of the interface.
func (c *Config) CtrlPath() string {
	return filepath.Join(c.CtrlDir, c.Interface)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
}
