package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/habits/internal/paths"
	"github.com/mesh-intelligence/habits/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "HABITS"

	defaultBackend  = types.BackendSQLite
	defaultLogLevel = "warn"
)

// Config keys. Each maps to a field of types.Config.
const (
	cfgKeyBackend     = "backend"
	cfgKeyDataDir     = "data_dir"
	cfgKeyAccessToken = "access_token"
	cfgKeyTokenFile   = "token_file"
	cfgKeyDriveURL    = "drive_url"
	cfgKeySheetsURL   = "sheets_url"
	cfgKeyTimeout     = "timeout"
	cfgKeyBatchLimit  = "batch_limit"
	cfgKeyFolderName  = "folder_name"
	cfgKeySheetName   = "sheet_name"
	cfgKeyTabName     = "tab_name"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"
	cfgKeyLogFile     = "log_file"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# habits CLI configuration

# Backend selection: sqlite (local) or remote (Drive and Sheets APIs)
backend: sqlite

# Data directory for the sqlite backend and the stored handle
# (optional; overridable by --data-dir flag)
# data_dir:

# Remote backend credentials. The token file is re-read when a request
# is rejected and watched for changes while a command runs.
# token_file:
# timeout: 30s

# Batch concurrency; 0 runs every item at once.
batch_limit: 0

# Logging: debug, info, warn or error; text or json; optional rotated file.
log_level: warn
log_format: text
# log_file:
`

// loadConfig reads config.yaml from configDir using Viper, creating the
// directory and a default file on first run. HABITS_* environment
// variables override file values.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, "text")
	v.SetDefault(cfgKeyBatchLimit, 0)
	v.SetDefault(cfgKeyTimeout, "30s")
	for _, key := range []string{
		cfgKeyDataDir, cfgKeyAccessToken, cfgKeyTokenFile, cfgKeyDriveURL, cfgKeySheetsURL,
		cfgKeyFolderName, cfgKeySheetName, cfgKeyTabName, cfgKeyLogFile,
	} {
		v.SetDefault(key, "")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFileName)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// decodeConfig unmarshals v into a types.Config.
func decodeConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}
