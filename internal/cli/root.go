// Package cli contains echo-server commands.
package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/srgkas/laravel-echo-server/internal/bridge"
	"github.com/srgkas/laravel-echo-server/internal/build"
	"github.com/srgkas/laravel-echo-server/internal/channel"
	"github.com/srgkas/laravel-echo-server/internal/config"
	"github.com/srgkas/laravel-echo-server/internal/logging"
	"github.com/srgkas/laravel-echo-server/internal/middleware"
	"github.com/srgkas/laravel-echo-server/internal/presence"
	"github.com/srgkas/laravel-echo-server/internal/transport"

	"github.com/joho/godotenv"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Execute runs the root command.
func Execute() {
	var configFile string
	rootCmd := &cobra.Command{
		Use:   "echo-server",
		Short: "Real-time pub/sub gateway routing core",
		Run: func(cmd *cobra.Command, args []string) {
			run(cmd, configFile)
		},
	}
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "path to config file")
	rootCmd.Flags().String("log_level", "info", "set the log level: trace, debug, info, warn, error, fatal or none")
	rootCmd.Flags().String("log_file", "", "optional log file - if not specified logs go to STDOUT")
	rootCmd.Flags().String("ops_address", "127.0.0.1", "ops server address")
	rootCmd.Flags().Int("ops_port", 6001, "ops server port")
	rootCmd.Flags().String("database", "", "pub/sub backend: empty or redis")
	rootCmd.Flags().String("auth_stub", "allow", "built-in authenticator: allow or deny")
	rootCmd.Flags().Bool("dev_mode", false, "enable verbose development logging")

	rootCmd.AddCommand(Version())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run wires config, logging, the routing core and the optional Redis bridge
// together, then serves the ops endpoint until a termination signal. The
// connection transport embedding this gateway drives Router.Join, Leave and
// HandleClientEvent from its own connection handling; application messages
// arrive through the Redis subscriber.
func run(cmd *cobra.Command, configFile string) {
	if fileExists(".env") {
		if err := godotenv.Load(); err != nil {
			log.Fatal().Err(err).Msg("error loading .env file")
		}
	}

	cfg, err := config.GetConfig(cmd, configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error getting config")
	}

	logCloseFn := logging.Setup(cfg)
	if logCloseFn != nil {
		defer logCloseFn()
	}

	classifier, err := channel.NewClassifier(channel.Patterns{
		Private:      cfg.ChannelPatterns.Private,
		ClientEvents: cfg.ChannelPatterns.ClientEvents,
		App:          cfg.ChannelPatterns.App,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("error compiling channel patterns")
	}

	hub := transport.NewHub()
	tracker := presence.NewTracker(hub)

	var publisher bridge.Publisher
	if cfg.Database == "redis" {
		redisPublisher, err := bridge.NewRedisPublisher(cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("error creating redis publisher")
		}
		defer redisPublisher.Close()
		publisher = redisPublisher
	}

	appBridge, err := bridge.New(cfg.ChannelPatterns.App, publisher)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating application bridge")
	}

	router := channel.NewRouter(classifier, hub, stubAuthenticator(cfg.AuthStub), appBridge, tracker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Database == "redis" {
		subscriber, err := bridge.NewRedisSubscriber(cfg.Redis, cfg.ChannelPatterns.App, router.HandleApplicationMessage)
		if err != nil {
			log.Fatal().Err(err).Msg("error creating redis subscriber")
		}
		defer subscriber.Close()
		g.Go(func() error {
			return subscriber.Run(gCtx)
		})
	}

	mux := http.NewServeMux()
	chain := alice.New(middleware.LogRequest)
	mux.Handle("/metrics", chain.Then(promhttp.Handler()))
	mux.Handle("/health", chain.ThenFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	server := &http.Server{
		Addr:    net.JoinHostPort(cfg.OpsAddress, strconv.Itoa(cfg.OpsPort)),
		Handler: mux,
	}

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info().
		Str("version", build.Version).
		Str("ops", server.Addr).
		Str("database", cfg.Database).
		Msg("gateway started")

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("gateway stopped")
}

// stubAuthenticator returns the built-in development authenticator. Real
// deployments construct the Router with their own Authenticator.
func stubAuthenticator(mode string) channel.Authenticator {
	if mode == "deny" {
		return channel.AuthenticatorFunc(func(_ context.Context, _ channel.Socket, _ channel.SubscriptionRequest) (channel.AuthResult, error) {
			return channel.AuthResult{Status: http.StatusForbidden, Reason: "denied by configuration"}, nil
		})
	}
	return channel.AuthenticatorFunc(func(_ context.Context, _ channel.Socket, req channel.SubscriptionRequest) (channel.AuthResult, error) {
		return channel.AuthResult{Success: true, ChannelData: req.ChannelData}, nil
	})
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
