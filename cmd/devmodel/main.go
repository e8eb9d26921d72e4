// Command devmodel serves a local stand-in for the generative model API.
// Point the client at it with NEXUSFLOW_MODEL_BASE_URL=http://localhost:8089.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nexusflow/nexusflow-client/internal/adapters/httpapi"
	"github.com/nexusflow/nexusflow-client/internal/platform/logger"
)

func main() {
	port := getenv("PORT", "8089")
	log := logger.New(os.Stdout, "devmodel", getenv("LOG_LEVEL", "info"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := httpapi.NewRouter(httpapi.RouterOptions{
		// Empty accepts any key.
		APIKey:   os.Getenv("DEVMODEL_API_KEY"),
		Registry: reg,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("port", port).Msg("devmodel listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
