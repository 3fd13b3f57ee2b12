// @title           FlowFix API
// @version         1.0
// @description     Error analysis over an internal knowledge base with asynchronous jobs.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kar2410/FLOW-FIX/internal/bootstrap"
	"github.com/Kar2410/FLOW-FIX/internal/config"
	"github.com/Kar2410/FLOW-FIX/internal/handlers"
	"github.com/Kar2410/FLOW-FIX/internal/mcpServer"
	"github.com/Kar2410/FLOW-FIX/internal/middleware"
	"github.com/Kar2410/FLOW-FIX/internal/server"
	"github.com/Kar2410/FLOW-FIX/internal/worker"
	"github.com/Kar2410/FLOW-FIX/pkg/logger_i"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath, listenAddr string
	flag.StringVar(&configPath, "config", "", "path to a TOML settings file (defaults to $"+config.ConfigPathEnv+")")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the settings file")
	flag.Parse()

	settings, err := config.Load(configPath)
	logger_i.Init(settings.Production, settings.LogLevel)
	logger := logger_i.NewLogger("main")
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return 1
	}
	if listenAddr != "" {
		settings.Server.ListenAddr = listenAddr
	}

	serviceContext, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(serviceContext, settings, bootstrap.Options{WithAnalysis: true})
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		return 1
	}
	closeServices := func() {
		if err := app.Close(context.Background()); err != nil {
			logger.Error("Error closing services", "error", err)
		}
	}

	pool := worker.NewPool(app.Jobs, app.Pipeline, worker.DefaultPoolConfig())
	pool.Start()

	handler, err := handlers.NewHandler(app.Jobs, app.Pipeline, config.UploadDir)
	if err != nil {
		logger.Error("Upload directory unavailable", "error", err)
		_ = pool.Stop(context.Background())
		closeServices()
		return 1
	}
	mcp, err := mcpServer.NewServer(app.Pipeline)
	if err != nil {
		logger.Error("MCP server failed to initialize", "error", err)
		_ = pool.Stop(context.Background())
		closeServices()
		return 1
	}

	router := server.NewRouter(handler, middleware.New(settings.Server), mcp.Handler())
	srv := server.New(settings.Server.ListenAddr, router)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe() }()

	exitCode := 0
	select {
	case <-serviceContext.Done():
		logger.Info("Server is shutting down")
	case err := <-serveErr:
		if err != nil {
			exitCode = 1
		}
	}

	if err := srv.Shutdown(pool, closeServices); err != nil {
		logger.Error("Force shut down", "error", err)
		return 1
	}
	logger.Info("Server stopped")
	return exitCode
}
