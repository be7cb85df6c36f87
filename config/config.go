package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"gopkg.in/yaml.v3"

	"github.com/0xPolygon/actor-evm/chain"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendBoltDB  = "boltdb"
)

var (
	ErrUnknownBackend = errors.New("unknown storage backend")
	ErrMissingDataDir = errors.New("data dir is required by persistent backends")
	ErrInvalidCache   = errors.New("analysis cache size must be positive")
	ErrUnknownLevel   = errors.New("unknown log level")
)

// Config defines the runtime configuration
type Config struct {
	LogLevel      string `json:"log_level" yaml:"log_level" hcl:"log_level"`
	LogFilePath   string `json:"log_to" yaml:"log_to" hcl:"log_to"`
	JSONLogFormat bool   `json:"json_log_format" yaml:"json_log_format" hcl:"json_log_format"`

	Storage   *Storage   `json:"storage" yaml:"storage" hcl:"storage"`
	EVM       *EVM       `json:"evm" yaml:"evm" hcl:"evm"`
	Telemetry *Telemetry `json:"telemetry" yaml:"telemetry" hcl:"telemetry"`
}

// Storage selects the backend accounts and slots are persisted in
type Storage struct {
	Backend string `json:"backend" yaml:"backend" hcl:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir" hcl:"data_dir"`
}

// EVM holds the execution parameters
type EVM struct {
	ChainID           int64  `json:"chain_id" yaml:"chain_id" hcl:"chain_id"`
	MaxCallDepth      int    `json:"max_call_depth" yaml:"max_call_depth" hcl:"max_call_depth"`
	MaxCodeSize       int    `json:"max_code_size" yaml:"max_code_size" hcl:"max_code_size"`
	AnalysisCacheSize int    `json:"analysis_cache_size" yaml:"analysis_cache_size" hcl:"analysis_cache_size"`
	GasLimit          uint64 `json:"gas_limit" yaml:"gas_limit" hcl:"gas_limit"`
	Precompiles       bool   `json:"precompiles" yaml:"precompiles" hcl:"precompiles"`
}

// Telemetry holds the config details for metric services.
type Telemetry struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" hcl:"enabled"`
	Prometheus bool   `json:"prometheus" yaml:"prometheus" hcl:"prometheus"`
	Service    string `json:"service" yaml:"service" hcl:"service"`
}

const (
	DefaultAnalysisCacheSize = 1024
	DefaultGasLimit          = 10_000_000
	DefaultService           = "actor-evm"
)

// DefaultConfig returns the default runtime config
func DefaultConfig() *Config {
	params := chain.DefaultParams()

	return &Config{
		LogLevel: "INFO",
		Storage: &Storage{
			Backend: BackendMemory,
		},
		EVM: &EVM{
			ChainID:           params.ChainID,
			MaxCallDepth:      params.MaxCallDepth,
			MaxCodeSize:       params.MaxCodeSize,
			AnalysisCacheSize: DefaultAnalysisCacheSize,
			GasLimit:          DefaultGasLimit,
			Precompiles:       true,
		},
		Telemetry: &Telemetry{
			Service: DefaultService,
		},
	}
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch {
	case strings.HasSuffix(path, ".hcl"):
		unmarshalFunc = hcl.Unmarshal
	case strings.HasSuffix(path, ".json"):
		unmarshalFunc = json.Unmarshal
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		unmarshalFunc = yaml.Unmarshal
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	config := DefaultConfig()
	if err := unmarshalFunc(data, config); err != nil {
		return nil, err
	}

	// sections missing from the file keep their defaults
	defaults := DefaultConfig()

	if config.Storage == nil {
		config.Storage = defaults.Storage
	}

	if config.EVM == nil {
		config.EVM = defaults.EVM
	}

	if config.Telemetry == nil {
		config.Telemetry = defaults.Telemetry
	}

	return config, nil
}

// Validate reports every invalid setting of the config
func (c *Config) Validate() error {
	var result *multierror.Error

	switch strings.ToLower(c.LogLevel) {
	case "", "trace", "debug", "info", "warn", "error", "off":
	default:
		result = multierror.Append(result, fmt.Errorf("%w: %s", ErrUnknownLevel, c.LogLevel))
	}

	if c.Storage != nil {
		switch c.Storage.Backend {
		case BackendMemory:
		case BackendLevelDB, BackendBoltDB:
			if c.Storage.DataDir == "" {
				result = multierror.Append(result, fmt.Errorf("%w: %s", ErrMissingDataDir, c.Storage.Backend))
			}
		default:
			result = multierror.Append(result, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend))
		}
	}

	if c.EVM != nil {
		if err := c.Params().Validate(); err != nil {
			result = multierror.Append(result, err)
		}

		if c.EVM.AnalysisCacheSize <= 0 {
			result = multierror.Append(result, ErrInvalidCache)
		}
	}

	return result.ErrorOrNil()
}

// Params returns the execution parameters of the config
func (c *Config) Params() *chain.Params {
	params := chain.DefaultParams()

	if c.EVM != nil {
		params.ChainID = c.EVM.ChainID
		params.MaxCallDepth = c.EVM.MaxCallDepth
		params.MaxCodeSize = c.EVM.MaxCodeSize
	}

	return params
}

// StoragePath returns the location of the persistent backend
func (c *Config) StoragePath() string {
	switch c.Storage.Backend {
	case BackendBoltDB:
		return filepath.Join(c.Storage.DataDir, "state.db")
	default:
		return filepath.Join(c.Storage.DataDir, "state")
	}
}
