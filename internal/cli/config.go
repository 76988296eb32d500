package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/grocery/internal/offline"
	"github.com/mesh-intelligence/grocery/internal/remote"
	"github.com/mesh-intelligence/grocery/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend        = "backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyAPIURL         = "api_url"
	cfgKeyListen         = "listen"
	cfgKeyPort           = "port"
	cfgKeySyncInterval   = "sync_interval"
	cfgKeyProbeInterval  = "probe_interval"
	cfgKeyRequestTimeout = "request_timeout"
	cfgKeyLogLevel       = "log_level"
	cfgKeyLogFormat      = "log_format"

	envPrefix = "GROCERY"

	defaultAPIURL         = remote.DefaultBaseURL
	defaultListen         = ":5000"
	defaultRequestTimeout = 10 * time.Second
)

// Settings is the resolved configuration of one invocation.
type Settings struct {
	ConfigDir      string
	Backend        string
	DataDir        string
	APIURL         string
	Listen         string
	SyncInterval   time.Duration
	ProbeInterval  time.Duration
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
}

// configFile is the structure written to config.yaml.
type configFile struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir,omitempty"`
	APIURL        string `yaml:"api_url"`
	SyncInterval  string `yaml:"sync_interval"`
	ProbeInterval string `yaml:"probe_interval"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:       types.BackendSQLite,
		DataDir:       dataDir,
		APIURL:        defaultAPIURL,
		SyncInterval:  offline.DefaultSyncInterval.String(),
		ProbeInterval: offline.DefaultSyncInterval.String(),
		LogLevel:      "info",
		LogFormat:     "console",
	}
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Environment variables override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyAPIURL, defaultAPIURL)
	v.SetDefault(cfgKeySyncInterval, offline.DefaultSyncInterval)
	v.SetDefault(cfgKeyProbeInterval, offline.DefaultSyncInterval)
	v.SetDefault(cfgKeyRequestTimeout, defaultRequestTimeout)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "console")

	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyListen, cfgKeySyncInterval, cfgKeyProbeInterval, cfgKeyRequestTimeout, cfgKeyLogLevel, cfgKeyLogFormat} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	if err := v.BindEnv(cfgKeyAPIURL, "GROCERY_API_URL", "API_URL"); err != nil {
		return nil, fmt.Errorf("bind env %s: %w", cfgKeyAPIURL, err)
	}
	if err := v.BindEnv(cfgKeyPort, "PORT"); err != nil {
		return nil, fmt.Errorf("bind env %s: %w", cfgKeyPort, err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// settingsFrom validates the loaded configuration.
func settingsFrom(v *viper.Viper) (Settings, error) {
	s := Settings{
		Backend:        v.GetString(cfgKeyBackend),
		DataDir:        v.GetString(cfgKeyDataDir),
		APIURL:         v.GetString(cfgKeyAPIURL),
		Listen:         v.GetString(cfgKeyListen),
		SyncInterval:   v.GetDuration(cfgKeySyncInterval),
		ProbeInterval:  v.GetDuration(cfgKeyProbeInterval),
		RequestTimeout: v.GetDuration(cfgKeyRequestTimeout),
		LogLevel:       v.GetString(cfgKeyLogLevel),
		LogFormat:      v.GetString(cfgKeyLogFormat),
	}
	if s.Listen == "" {
		s.Listen = defaultListen
		if port := v.GetString(cfgKeyPort); port != "" {
			s.Listen = ":" + port
		}
	}

	if err := (types.Config{Backend: s.Backend, DataDir: s.DataDir}).Validate(); err != nil {
		return s, fmt.Errorf("%s %q: %w", cfgKeyBackend, s.Backend, err)
	}
	if u, err := url.Parse(s.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return s, fmt.Errorf("%s %q is not an absolute URL", cfgKeyAPIURL, s.APIURL)
	}
	for key, d := range map[string]time.Duration{
		cfgKeySyncInterval:   s.SyncInterval,
		cfgKeyProbeInterval:  s.ProbeInterval,
		cfgKeyRequestTimeout: s.RequestTimeout,
	} {
		if d <= 0 {
			return s, fmt.Errorf("%s must be positive", key)
		}
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values. It reports
// whether a file was written; an existing file is left alone.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := defaultConfigFile(dataDir)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# Grocery configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}
