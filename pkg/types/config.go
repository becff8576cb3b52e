package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for opening a habit store.
type Config struct {
	Backend     string        `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string        `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	AccessToken string        `json:"-" yaml:"-" mapstructure:"access_token"`
	TokenFile   string        `json:"token_file" yaml:"token_file" mapstructure:"token_file"`
	DriveURL    string        `json:"drive_url" yaml:"drive_url" mapstructure:"drive_url"`
	SheetsURL   string        `json:"sheets_url" yaml:"sheets_url" mapstructure:"sheets_url"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	BatchLimit  int           `json:"batch_limit" yaml:"batch_limit" mapstructure:"batch_limit"`
	FolderName  string        `json:"folder_name" yaml:"folder_name" mapstructure:"folder_name"`
	SheetName   string        `json:"sheet_name" yaml:"sheet_name" mapstructure:"sheet_name"`
	TabName     string        `json:"tab_name" yaml:"tab_name" mapstructure:"tab_name"`
	LogLevel    string        `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat   string        `json:"log_format" yaml:"log_format" mapstructure:"log_format"`
	LogFile     string        `json:"log_file" yaml:"log_file" mapstructure:"log_file"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
)

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrBatchLimitInvalid = errors.New("batch limit must not be negative")
	ErrTimeoutInvalid    = errors.New("timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendRemote: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendRemote && c.AccessToken == "" && c.TokenFile == "" {
		return ErrTokenMissing
	}
	if c.BatchLimit < 0 {
		return ErrBatchLimitInvalid
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// Schema returns the default schema renamed by the configured folder,
// sheet and tab names.
func (c Config) Schema() Schema {
	return DefaultSchema().WithNames(c.FolderName, c.SheetName, c.TabName)
}
