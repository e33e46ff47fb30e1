package qdispatch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const poolYAML = `
pool:
  workers: 8
  task_timeout: 250ms
retry:
  attempts: 3
  backoff: 5ms
breaker:
  max_failures: 4
simulation:
  shots: 64
  qubits: 6
seed: 1234
inference:
  layers: [3, 5, 1]
log:
  level: debug
`

func TestNewConfig(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := NewConfig()

		So(cfg.Validate(), ShouldBeNil)
		So(cfg.Workers, ShouldEqual, 4)
		So(cfg.RetryAttempts, ShouldEqual, 1)
		So(cfg.BreakerMaxFailures, ShouldEqual, 0)
		So(cfg.Shots, ShouldEqual, 1024)
		So(cfg.taskTimeout(), ShouldEqual, 30*time.Second)

		Convey("Invalid settings are all reported", func() {
			cfg.Workers = 0
			cfg.Shots = 0
			cfg.SimulationQubits = MaxQubits + 1

			err := cfg.Validate()
			So(errors.Is(err, ErrInvalidWorkerCount), ShouldBeTrue)
			So(errors.Is(err, ErrInvalidShots), ShouldBeTrue)
			So(errors.Is(err, ErrCapacityExceeded), ShouldBeTrue)
		})
	})
}

func TestLoadConfig(t *testing.T) {
	Convey("Given no config file", t, func() {
		cfg, err := LoadConfig("")

		Convey("The defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg, ShouldResemble, NewConfig())
		})
	})

	Convey("Given a YAML config file", t, func() {
		path := filepath.Join(t.TempDir(), "qdispatch.yaml")
		So(os.WriteFile(path, []byte(poolYAML), 0o644), ShouldBeNil)

		Convey("Its values override the defaults", func() {
			cfg, err := LoadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Workers, ShouldEqual, 8)
			So(cfg.TaskTimeout, ShouldEqual, 250*time.Millisecond)
			So(cfg.RetryAttempts, ShouldEqual, 3)
			So(cfg.RetryBackoff, ShouldEqual, 5*time.Millisecond)
			So(cfg.BreakerMaxFailures, ShouldEqual, 4)
			So(cfg.BreakerResetTimeout, ShouldEqual, 5*time.Second)
			So(cfg.Shots, ShouldEqual, 64)
			So(cfg.SimulationQubits, ShouldEqual, 6)
			So(cfg.Seed, ShouldEqual, uint64(1234))
			So(cfg.NetworkLayers, ShouldResemble, []int{3, 5, 1})
			So(cfg.LogLevel, ShouldEqual, "debug")
		})

		Convey("The environment overrides the file", func() {
			t.Setenv("QDISPATCH_POOL_WORKERS", "2")

			cfg, err := LoadConfig(path)
			So(err, ShouldBeNil)
			So(cfg.Workers, ShouldEqual, 2)
		})

		Convey("An invalid value fails validation", func() {
			t.Setenv("QDISPATCH_POOL_WORKERS", "0")

			_, err := LoadConfig(path)
			So(errors.Is(err, ErrInvalidWorkerCount), ShouldBeTrue)
		})
	})

	Convey("Given a missing config file", t, func() {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		So(err, ShouldNotBeNil)
	})
}
