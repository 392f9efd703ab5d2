// airdine-twin serves an in-memory AirDine backend for local development.
// On startup it prints a token pair to paste into the client settings.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kahan44/airdine/internal/twin"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	user := flag.String("user", "diner@example.com", "user the printed tokens belong to")
	ttl := flag.Duration("activation-ttl", twin.DefaultActivationTTL, "validity of issued activation codes")
	debug := flag.Bool("debug", false, "log every request")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	tw := twin.New(twin.WithActivationTTL(*ttl), twin.WithLogger(log))

	access, refresh, err := tw.IssueTokens(*user)
	if err != nil {
		log.Fatal().Err(err).Msg("issuing tokens")
	}
	fmt.Printf("access token:  %s\nrefresh token: %s\n\n", access, refresh)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           tw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Str("base_url", "http://127.0.0.1"+*addr+"/api").Msg("twin ready")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
