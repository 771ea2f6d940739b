package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"kotadb/internal/extractor"
	"kotadb/internal/indexer"
	"kotadb/internal/mcpserver"
	"kotadb/internal/query"
	"kotadb/internal/store"
	syncpkg "kotadb/internal/sync"
	"kotadb/internal/tools"
)

var (
	serveTransport string
	serveAddr      string
	serveToolset   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP tool server (stdio or HTTP)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	st, reg, err := openStoreAndRegistry()
	if err != nil {
		return err
	}
	defer st.Close()

	ts := tools.Toolset(serveToolset)
	dispatcher := mcpserver.NewDispatcher(reg, ts)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch serveTransport {
	case "stdio":
		server := mcpserver.NewStdioServer(dispatcher)
		return server.Serve(ctx, os.Stdin, os.Stdout)
	case "http":
		router := mcpserver.NewHTTPRouter(dispatcher)
		srv := &http.Server{Addr: serveAddr, Handler: router}
		go func() {
			<-ctx.Done()
			shutdownTimeout := timeout
			if shutdownTimeout <= 0 {
				shutdownTimeout = 10 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		fmt.Fprintf(os.Stderr, "kotadb MCP server listening on %s\n", serveAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown transport %q (expected stdio or http)", serveTransport)
	}
}

// openStoreAndRegistry wires a Store, Indexer, query.Service, sync.Service,
// and tool Registry together exactly once, shared by serve/index/sync
// subcommands.
func openStoreAndRegistry() (*store.Store, *tools.Registry, error) {
	dbPath := cfg.Store.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	idx := indexer.New(st, extractor.NewFactory())
	q := query.New(st)
	sv := syncpkg.New(st)

	tools.SetDomainGlobs(cfg.Query.DomainRules)

	reg := tools.NewRegistry()
	if err := tools.RegisterCore(reg, st, idx, q, sv); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("register core tools: %w", err)
	}
	if err := tools.RegisterSearch(reg, st, q); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("register search tool: %w", err)
	}

	return st, reg, nil
}
