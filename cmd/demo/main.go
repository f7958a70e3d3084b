package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ZHKGitHub1994/skywalking/internal/agent"
	"github.com/ZHKGitHub1994/skywalking/internal/config"
	"github.com/ZHKGitHub1994/skywalking/internal/logging"
	"github.com/ZHKGitHub1994/skywalking/internal/middleware"
	"github.com/ZHKGitHub1994/skywalking/internal/tracing"
)

func main() {
	port := flag.String("port", "8080", "HTTP port")
	configPath := flag.String("config", "", "Optional YAML config file (env still wins)")
	flag.Parse()

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ag, err := agent.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create agent: %v", err)
	}
	ag.Start()

	srv := &http.Server{
		Addr:    ":" + *port,
		Handler: buildRouter(ag),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	logger.Info("demo listening",
		zap.String("port", *port),
		zap.Bool("standalone", cfg.Standalone()),
	)

	select {
	case <-sigChan:
	case err := <-errChan:
		log.Fatalf("Server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := ag.Shutdown(shutdownCtx); err != nil {
		logger.Warn("agent shutdown", zap.Error(err))
	}
}

func buildRouter(ag *agent.Agent) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Registered before the trace middleware so scrapes and probes do not
	// generate segments.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, ag.Stats())
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(ag.Registry(), promhttp.HandlerOpts{})))

	router.Use(middleware.Trace(ag))

	router.GET("/work", func(c *gin.Context) {
		tc, ok := tracing.FromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no tracing context"})
			return
		}

		compute := tc.CreateLocalSpan("compute-pricing")
		compute.SetTag("items", "3")
		time.Sleep(2 * time.Millisecond)

		call := tc.CreateExitSpan("GET inventory/stock", "inventory:8081")
		time.Sleep(time.Millisecond)
		tc.StopSpan(call)

		tc.StopSpan(compute)

		c.JSON(http.StatusOK, gin.H{
			"trace_id": tracing.TraceID(c.Request.Context()),
		})
	})

	return router
}
