package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/PaulBabatuyi/mentorship-hub/internal/auth"
	"github.com/PaulBabatuyi/mentorship-hub/internal/config"
	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
	"github.com/PaulBabatuyi/mentorship-hub/internal/db"
	"github.com/PaulBabatuyi/mentorship-hub/internal/mailer"
	"github.com/PaulBabatuyi/mentorship-hub/internal/mentorship"
	"github.com/PaulBabatuyi/mentorship-hub/internal/middleware"
	"github.com/PaulBabatuyi/mentorship-hub/internal/notify"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	indexesCmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create MongoDB indexes and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dbClient, err := db.New(cmd.Context(), cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return err
			}
			defer func() {
				_ = dbClient.Close(context.Background())
			}()
			if err := dbClient.CreateIndexes(cmd.Context()); err != nil {
				return err
			}
			log.Printf("indexes created")
			return nil
		},
	}

	root := &cobra.Command{
		Use:          "mentorship-api",
		Short:        "Peer mentorship backend",
		SilenceUsage: true,
		RunE:         serveCmd.RunE,
	}
	root.AddCommand(serveCmd, indexesCmd)
	return root
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize database
	dbClient, err := db.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer func() {
		_ = dbClient.Close(context.Background())
	}()

	// Ensure indexes exist
	if err := dbClient.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// Create stores
	usersStore := data.NewUsersStore(dbClient.UsersCollection())
	requestsStore := data.NewRequestsStore(dbClient.RequestsCollection())
	msgsStore := data.NewMessagesStore(dbClient.MessagesCollection())
	feedbackStore := data.NewFeedbackStore(dbClient.FeedbackCollection())
	tokensStore := data.NewResetTokensStore(dbClient.ResetTokensCollection())

	jwtMgr := auth.NewJWTManagerFromKeys(cfg.JWTKeys, cfg.JWTActiveKid, auth.SessionDuration)

	mail, err := mailer.New(mailer.Options{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		SSL:      cfg.SMTP.TLS,
	})
	if err != nil {
		return fmt.Errorf("failed to configure mailer: %w", err)
	}

	google := auth.NewGoogleOAuth(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)

	// Create limiter store (small burst to allow a couple of quick retries)
	limiterStore := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, 1*time.Minute)
	defer limiterStore.Stop()

	srv := newServer(serverDeps{
		Users:        usersStore,
		Tokens:       tokensStore,
		Mentorship:   mentorship.NewService(usersStore, requestsStore, msgsStore, feedbackStore, tokensStore),
		Notify:       notify.NewAggregator(requestsStore, msgsStore, usersStore),
		Store:        dbClient,
		Auth:         jwtMgr,
		Google:       google,
		Mail:         mail,
		Limiter:      limiterStore,
		AppURL:       cfg.AppURL,
		CookieSecure: cfg.CookieSecure,
		CORSOrigins:  cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// If TLS certs are configured, serve the ops listener over TLS as well
	var grpcOpts []grpc.ServerOption
	if cfg.TLSCert != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("failed to load TLS certs: %w", err)
		}
		grpcOpts = append(grpcOpts, grpc.Creds(creds))
	}
	grpcServer, healthServer := newOpsServer(grpcOpts...)

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go monitorHealth(monitorCtx, healthServer, dbClient, 15*time.Second)

	errCh := make(chan error, 2)
	go func() {
		log.Printf("gRPC health server listening on %s", cfg.GRPCAddr())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server exit: %w", err)
		}
	}()
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr())
		var err error
		if cfg.TLSCert != "" {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server exit: %w", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case <-stop:
	case runErr = <-errCh:
		log.Printf("%v", runErr)
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	// let queued reset mails finish before the store goes away
	srv.background.Wait()
	stopMonitor()
	grpcServer.GracefulStop()
	return runErr
}
