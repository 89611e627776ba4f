// Command devapi serves an in-memory zones and bus-location API for running
// the console locally.
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

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/devapi"
	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/logging"
)

func main() {
	_ = godotenv.Load()
	addr := flag.String("addr", ":8080", "Listen address")
	lng := flag.Float64("depot-lng", 90.415, "Depot longitude for the simulated fleet")
	lat := flag.Float64("depot-lat", 23.815, "Depot latitude for the simulated fleet")
	issue := flag.String("issue-token", "", "Write an HS256 token to this file and exit (needs DEVAPI_HMAC_SECRET)")
	ttl := flag.Duration("token-ttl", 12*time.Hour, "Lifetime of an issued token")
	flag.Parse()

	log := logging.NewFromEnv()
	auth := devapi.NewVerifierFromEnv()

	if *issue != "" {
		if len(auth.Secret) == 0 {
			fmt.Fprintln(os.Stderr, "DEVAPI_HMAC_SECRET is required to issue tokens")
			os.Exit(2)
		}
		tok, err := devapi.IssueToken(auth.Secret, "operator", *ttl)
		if err == nil {
			err = os.WriteFile(*issue, []byte(tok+"\n"), 0o600)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	s := &devapi.Server{
		Store: devapi.NewMemory(),
		Auth:  auth,
		Fleet: devapi.NewFleet(orb.Point{*lng, *lat}),
		Log:   log,
	}
	srv := &http.Server{Addr: *addr, Handler: s.Router(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info(ctx, "devapi listening", logging.String("addr", *addr), logging.String("auth_mode", auth.Mode))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error(ctx, "server error", logging.Err(err))
		os.Exit(1)
	}
}
