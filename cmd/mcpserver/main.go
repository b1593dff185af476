// Command mcpserver runs a Streamable HTTP MCP server with an in-memory event store and task
// store, wiring the example tool bindings. Structure (a debug mux alongside the main handler, a
// graceful shutdown manager driving an http.Server, os.Exit(1) on a fatal listen error) is
// grounded on the teacher's mcpsvr/main.go; the Azure-backed storage/phase-manager branches and
// pid-watchdog local-debug mode have no analogue here (SPEC_FULL.md's transport is JSON-RPC
// over Streamable HTTP with an in-memory event/task store, not REST-over-Azure-Queue).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/jrichter-oss/mcpcore/config"
	"github.com/jrichter-oss/mcpcore/exampletools"
	"github.com/jrichter-oss/mcpcore/mcp"
	"github.com/jrichter-oss/mcpcore/mcpserver"
	"github.com/jrichter-oss/mcpcore/session"
	"github.com/jrichter-oss/mcpcore/ssestore"
	"github.com/jrichter-oss/mcpcore/streamhttp"
	"github.com/jrichter-oss/mcpcore/task"
)

func main() {
	cfg := config.Get()

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	shutdown := streamhttp.NewShutdownManager()

	store := ssestore.NewStore(cfg.EventStoreBacklog)
	taskRuntime := task.NewRuntime(task.NewMemStore(task.MemStoreConfig{
		DefaultTTL:         cfg.TaskDefaultTTL,
		MaxTTL:             cfg.TaskMaxTTL,
		MaxTasks:           cfg.MaxTasks,
		MaxTasksPerSession: cfg.MaxTasksPerSession,
		ListPageSize:       cfg.TaskListPageSize,
	}), cfg.TaskSweepInterval, logger)
	defer taskRuntime.Stop()

	trueVal := true
	serverInfo := mcp.Info{Name: "mcpcore-example-server", Version: "0.1.0"}
	serverCaps := mcp.ServerCapabilities{
		Tools: &mcp.ToolsCapability{},
		Tasks: &mcp.TasksCapability{
			Requests: []string{mcp.TaskMethodToolsCall},
			List:     &trueVal,
			Cancel:   &trueVal,
		},
	}

	newSession := func(ctx context.Context, sessionID string) *streamhttp.SessionTransport {
		st := streamhttp.NewSessionTransport(sessionID, store, cfg.Stateless)
		sess := session.New(st, serverInfo, serverCaps, logger)
		if cfg.OTLPEndpoint != "" {
			sess.RegisterMessageFilter(session.NewTracingFilter(sessionID))
		}
		srv := mcpserver.New(sess, taskRuntime)
		srv.RegisterTool(exampletools.AddTool{})
		srv.RegisterTool(exampletools.CountTool{})
		srv.RegisterTool(exampletools.WelcomeTool{Elicitor: srv})
		runCtx := ctx
		if !cfg.Stateless {
			// ctx belongs to the initialize POST; a stateful session outlives that request and
			// ends on DELETE, transport close, or server shutdown.
			runCtx = shutdown.Context
		}
		go sess.Run(runCtx)
		return st
	}

	mcpHandler := streamhttp.NewHandler(store, logger, cfg.Stateless, newSession)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/debug/health", shutdown.HealthHandler())
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	var handler http.Handler = mux
	handler = streamhttp.NewMetricsMiddleware(handler)
	handler = streamhttp.NewRequestLogMiddleware(logger, handler)
	handler = shutdown.TrackRequest(handler)

	s := &http.Server{
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return shutdown.Context },
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // long-lived SSE streams must not be cut off by a fixed deadline
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, streamhttp.MetricsHandler()); err != nil {
				logger.Error("metrics listener exited", slog.String("error", err.Error()))
			}
		}()
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	logger.Info("listening", slog.String("addr", ln.Addr().String()))

	go func() {
		<-shutdown.Done()
		shutdown.Drain(context.Background())
		_ = s.Close()
	}()

	if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}
