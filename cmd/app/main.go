package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	cfgpkg "github.com/local/pdf2docx/internal/config"
	"github.com/local/pdf2docx/internal/fetch"
	logpkg "github.com/local/pdf2docx/internal/logger"
	"github.com/local/pdf2docx/internal/metrics"
	"github.com/local/pdf2docx/internal/server"
	"github.com/local/pdf2docx/internal/tempfiles"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init server")
	}
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	// Janitor for crash leftovers in the temp dirs
	janitorStop := make(chan struct{})
	go tempfiles.Janitor(
		[]string{cfg.Upload.UploadDir, cfg.Upload.OutDir},
		append([]string{"conv-"}, fetch.TempPrefixes...),
		cfg.Convert.CleanupInterval,
		cfg.Convert.CleanupMaxAge,
		janitorStop,
	)
	defer close(janitorStop)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}
