// Package config loads process configuration from the environment, in the style of the
// teacher's mcpsvr/config package: a single struct with `env:"..."` tags, parsed once via
// sync.OnceValue and validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-controlled knob of the MCP server runtime.
type Config struct {
	// ListenAddr is the address the Streamable HTTP transport binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	// Stateless disables session persistence: server-initiated requests and unsolicited
	// notifications are rejected, per SPEC_FULL.md's stateless-mode invariant.
	Stateless bool `env:"STATELESS" envDefault:"false"`

	// InitializeTimeout is parsed from the environment, but no component reads it: a session
	// waits for the initialize handshake without a time limit.
	InitializeTimeout time.Duration `env:"INITIALIZE_TIMEOUT" envDefault:"60s"`

	// TaskDefaultTTL is applied to a task-augmented request that does not request a TTL.
	TaskDefaultTTL time.Duration `env:"TASK_DEFAULT_TTL" envDefault:"1h"`

	// TaskMaxTTL caps any client-requested TTL.
	TaskMaxTTL time.Duration `env:"TASK_MAX_TTL" envDefault:"24h"`

	// TaskSweepInterval is how often the in-memory task store scans for expired tasks.
	TaskSweepInterval time.Duration `env:"TASK_SWEEP_INTERVAL" envDefault:"1m"`

	// MaxTasks bounds total live tasks across all sessions; 0 means unlimited.
	MaxTasks int `env:"MAX_TASKS" envDefault:"0"`

	// MaxTasksPerSession bounds live tasks owned by a single session; 0 means unlimited.
	MaxTasksPerSession int `env:"MAX_TASKS_PER_SESSION" envDefault:"0"`

	// TaskListPageSize bounds how many tasks a single tasks/list response returns when the
	// caller does not request a specific page size.
	TaskListPageSize int `env:"TASK_LIST_PAGE_SIZE" envDefault:"50"`

	// EventStoreBacklog bounds how many SSE items a stream retains for replay before the
	// oldest entries are dropped.
	EventStoreBacklog int `env:"EVENT_STORE_BACKLOG" envDefault:"1000"`

	// MetricsAddr, if non-empty, serves Prometheus metrics on its own listener.
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// OTLPEndpoint, if non-empty, enables the OpenTelemetry tracing message filter.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return errors.New("no listen address specified")
	}
	if c.TaskMaxTTL < c.TaskDefaultTTL {
		return errors.New("TASK_MAX_TTL must be >= TASK_DEFAULT_TTL")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unrecognized LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// Get parses and validates the process's Config exactly once, memoizing the result.
var Get = sync.OnceValue(func() *Config {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Prefix: "MCP_"})
	if err == nil {
		err = cfg.validate()
	}
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return cfg
})
