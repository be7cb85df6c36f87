package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/armon/go-metrics"
	promsink "github.com/armon/go-metrics/prometheus"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/0xPolygon/actor-evm/storage"
	"github.com/0xPolygon/actor-evm/storage/boltdb"
	"github.com/0xPolygon/actor-evm/storage/leveldb"
	"github.com/0xPolygon/actor-evm/storage/memory"
)

// NewLogger builds the root logger. The returned closer releases the log file, if any.
func (c *Config) NewLogger() (hclog.Logger, io.Closer, error) {
	var (
		output io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)

	if c.LogFilePath != "" {
		f, err := os.OpenFile(c.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}

		output, closer = f, f
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:       DefaultService,
		Level:      hclog.LevelFromString(c.LogLevel),
		JSONFormat: c.JSONLogFormat,
		Output:     output,
	})

	return logger, closer, nil
}

// NewStorage opens the configured backend
func (c *Config) NewStorage(logger hclog.Logger) (storage.Storage, error) {
	switch c.Storage.Backend {
	case BackendMemory:
		return memory.NewMemoryStorage(), nil

	case BackendLevelDB:
		return leveldb.NewLevelDBStorage(c.StoragePath(), logger)

	case BackendBoltDB:
		if err := os.MkdirAll(c.Storage.DataDir, 0750); err != nil {
			return nil, err
		}

		return boltdb.NewBoltDBStorage(c.StoragePath(), logger)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Storage.Backend)
	}
}

// SetupTelemetry installs the global metrics sink. The in-memory sink is
// always installed and dumps on SIGUSR1. With Prometheus enabled its
// collectors are registered in reg, or in the default registry if reg is nil.
func (c *Config) SetupTelemetry(reg prometheus.Registerer) (*metrics.InmemSink, error) {
	if c.Telemetry == nil || !c.Telemetry.Enabled {
		return nil, nil
	}

	inm := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(inm)

	sinks := metrics.FanoutSink{inm}

	if c.Telemetry.Prometheus {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}

		promSink, err := promsink.NewPrometheusSinkFrom(promsink.PrometheusOpts{
			Name:       c.Telemetry.Service + "_prometheus_sink",
			Expiration: 0,
			Registerer: reg,
		})
		if err != nil {
			return nil, err
		}

		sinks = append(sinks, promSink)
	}

	metricsConf := metrics.DefaultConfig(c.Telemetry.Service)
	metricsConf.EnableHostname = false

	if _, err := metrics.NewGlobal(metricsConf, sinks); err != nil {
		return nil, err
	}

	return inm, nil
}
