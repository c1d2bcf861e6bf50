package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"equipment_lending/app"
	"equipment_lending/config"
	"equipment_lending/routes"
)

func main() {
	config.LoadEnv()
	application := app.MustNew()
	defer application.Close()

	r := application.Router
	s := routes.RegisterRoutes(r, application)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.BootstrapFirstAdmin(ctx, application.Config, s.Auth, application.Log)

	srv := &http.Server{
		Addr:              ":" + application.Config.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		application.Log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			application.Log.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		application.Log.Error().Err(err).Msg("shutdown")
	}
	application.Log.Info().Msg("stopped")
}
