package qdispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/*
Config holds everything the pool and its built-in handlers need. NewConfig
gives working defaults; LoadConfig layers a YAML file and QDISPATCH_*
environment variables over them.
*/
type Config struct {
	Workers     int
	TaskTimeout time.Duration

	RetryAttempts int
	RetryBackoff  time.Duration

	// BreakerMaxFailures of 0 disables the per-kind circuit breakers.
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration
	BreakerHalfOpenMax  int

	Shots            int
	SimulationQubits int
	CircuitFile      string

	// Seed of 0 means every worker seeds from the runtime source.
	Seed uint64

	NetworkLayers      []int
	SolverIterations   int
	SolverLearningRate float64

	LogLevel string
}

func NewConfig() *Config {
	return &Config{
		Workers:             4,
		TaskTimeout:         30 * time.Second,
		RetryAttempts:       1,
		RetryBackoff:        10 * time.Millisecond,
		BreakerMaxFailures:  0,
		BreakerResetTimeout: 5 * time.Second,
		BreakerHalfOpenMax:  1,
		Shots:               1024,
		SimulationQubits:    10,
		NetworkLayers:       []int{4, 8, 2},
		SolverIterations:    500,
		SolverLearningRate:  0.05,
		LogLevel:            "info",
	}
}

// Validate rejects settings the pool cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidWorkerCount, c.Workers))
	}
	if c.RetryAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts))
	}
	if c.Shots < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidShots, c.Shots))
	}
	if err := checkQubitCount(c.SimulationQubits); err != nil {
		errs = append(errs, fmt.Errorf("simulation qubits: %w", err))
	}
	if len(c.NetworkLayers) < 2 {
		errs = append(errs, fmt.Errorf("network needs at least 2 layers, got %d", len(c.NetworkLayers)))
	}
	if c.BreakerMaxFailures < 0 {
		errs = append(errs, errors.New("breaker max failures must not be negative"))
	}

	return errors.Join(errs...)
}

/*
LoadConfig reads configuration in increasing precedence: defaults, the YAML
file at path (skipped when path is empty), then environment variables named
QDISPATCH_<SECTION>_<KEY>, e.g. QDISPATCH_POOL_WORKERS.
*/
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, NewConfig())

	v.SetEnvPrefix("qdispatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Workers:             v.GetInt("pool.workers"),
		TaskTimeout:         v.GetDuration("pool.task_timeout"),
		RetryAttempts:       v.GetInt("retry.attempts"),
		RetryBackoff:        v.GetDuration("retry.backoff"),
		BreakerMaxFailures:  v.GetInt("breaker.max_failures"),
		BreakerResetTimeout: v.GetDuration("breaker.reset_timeout"),
		BreakerHalfOpenMax:  v.GetInt("breaker.half_open_max"),
		Shots:               v.GetInt("simulation.shots"),
		SimulationQubits:    v.GetInt("simulation.qubits"),
		CircuitFile:         v.GetString("simulation.circuit"),
		Seed:                v.GetUint64("seed"),
		NetworkLayers:       v.GetIntSlice("inference.layers"),
		SolverIterations:    v.GetInt("optimization.iterations"),
		SolverLearningRate:  v.GetFloat64("optimization.learning_rate"),
		LogLevel:            v.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("pool.workers", d.Workers)
	v.SetDefault("pool.task_timeout", d.TaskTimeout)
	v.SetDefault("retry.attempts", d.RetryAttempts)
	v.SetDefault("retry.backoff", d.RetryBackoff)
	v.SetDefault("breaker.max_failures", d.BreakerMaxFailures)
	v.SetDefault("breaker.reset_timeout", d.BreakerResetTimeout)
	v.SetDefault("breaker.half_open_max", d.BreakerHalfOpenMax)
	v.SetDefault("simulation.shots", d.Shots)
	v.SetDefault("simulation.qubits", d.SimulationQubits)
	v.SetDefault("simulation.circuit", d.CircuitFile)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("inference.layers", d.NetworkLayers)
	v.SetDefault("optimization.iterations", d.SolverIterations)
	v.SetDefault("optimization.learning_rate", d.SolverLearningRate)
	v.SetDefault("log.level", d.LogLevel)
}

// taskTimeout falls back to 30s when unset.
func (c *Config) taskTimeout() time.Duration {
	if c != nil && c.TaskTimeout > 0 {
		return c.TaskTimeout
	}
	return 30 * time.Second
}
