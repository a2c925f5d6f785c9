package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/absmach/flparticipant"
	"github.com/absmach/flparticipant/cli"
	"github.com/absmach/flparticipant/participant"
	"github.com/absmach/flparticipant/participant/api"
	"github.com/absmach/flparticipant/participant/middleware"
	"github.com/absmach/flparticipant/pkg/coordinator"
	pkgerrors "github.com/absmach/flparticipant/pkg/errors"
	"github.com/absmach/flparticipant/pkg/mqtt"
	"github.com/absmach/flparticipant/pkg/storage"
	"github.com/absmach/flparticipant/pkg/trainer"
	"github.com/absmach/supermq/pkg/jaeger"
	"github.com/absmach/supermq/pkg/prometheus"
	"github.com/absmach/supermq/pkg/server"
	httpserver "github.com/absmach/supermq/pkg/server/http"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const (
	svcName       = "fl_participant"
	defHTTPPort   = "9021"
	envPrefix     = "FL_PARTICIPANT_"
	envPrefixHTTP = "FL_PARTICIPANT_HTTP_"
	pathEnv       = ".env"
)

func newStartCmd() *cobra.Command {
	var (
		configPath  = cli.DefConfigPath
		logLevel    string
		coordURL    string
		trainerFile string
	)

	cmd := &cobra.Command{
		Use:          "start",
		Short:        "Start participant",
		Long:         `Rendezvous with the coordinator and train until the session is finished.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if coordURL != "" {
				cfg.CoordinatorURL = coordURL
			}
			if trainerFile != "" {
				cfg.TrainerFile = trainerFile
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			err = StartParticipant(ctx, cancel, cfg)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, pkgerrors.ErrShutdownRequested), errors.Is(err, context.Canceled):
				slog.Info("participant stopped by operator")

				return nil
			default:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", configPath, "Config file path")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", logLevel, "Log level")
	cmd.Flags().StringVarP(&coordURL, "coordinator-url", "u", coordURL, "Coordinator URL")
	cmd.Flags().StringVarP(&trainerFile, "trainer-file", "f", trainerFile, "Path to the trainer Wasm module")

	return cmd
}

// loadConfig layers the environment over config.toml; a missing file is
// not an error.
func loadConfig(path string) (participant.Config, error) {
	if _, err := os.Stat(pathEnv); err == nil {
		_ = godotenv.Load(pathEnv)
	}

	var cfg participant.Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return participant.Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}

	fileCfg, err := flparticipant.LoadConfig(path)
	switch {
	case err == nil:
		fileCfg.Apply(&cfg)
	case !errors.Is(err, os.ErrNotExist):
		return participant.Config{}, err
	}

	if cfg.ParticipantID == "" {
		cfg.ParticipantID = uuid.NewString()
	}

	return cfg, nil
}

func StartParticipant(ctx context.Context, cancel context.CancelFunc, cfg participant.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to parse log level: %s", err.Error())
	}
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	var tp trace.TracerProvider
	switch {
	case cfg.OTELURL == (url.URL{}):
		tp = noop.NewTracerProvider()
	default:
		sdktp, err := jaeger.NewProvider(ctx, svcName, cfg.OTELURL, cfg.ParticipantID, cfg.TraceRatio)
		if err != nil {
			return errors.Join(errors.New("failed to initialize opentelemetry"), err)
		}
		defer func() {
			if err := sdktp.Shutdown(context.Background()); err != nil {
				logger.Error("error shutting down tracer provider", slog.Any("error", err))
			}
		}()
		tp = sdktp
	}
	tracer := tp.Tracer(svcName)

	wasmBinary, err := trainer.Load(ctx, cfg.TrainerFile, cfg.TrainerImage, trainer.RegistryConfig{
		URL:       cfg.RegistryURL,
		Username:  cfg.RegistryUsername,
		Password:  cfg.RegistryPassword,
		PlainHTTP: cfg.RegistryPlainHTTP,
	}, logger)
	if err != nil {
		return errors.Join(errors.New("failed to load trainer module"), err)
	}
	tr, err := trainer.NewWazeroTrainer(ctx, wasmBinary, cfg.ParticipantID, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := tr.Close(context.Background()); err != nil {
			logger.Warn("failed to close trainer runtime", slog.Any("error", err))
		}
	}()

	anonymous, err := coordinator.NewAnonymousClient(coordinator.Config{
		URL:           cfg.CoordinatorURL,
		ParticipantID: cfg.ParticipantID,
		Name:          cfg.Name,
		Timeout:       cfg.CoordinatorTimeout,
		UploadFormat:  coordinator.Format(cfg.UploadFormat),
	})
	if err != nil {
		return err
	}
	anonymous = middleware.Logging(logger, anonymous)
	anonymous = middleware.Tracing(tracer, anonymous)
	counter, latency := prometheus.MakeMetrics(svcName, "transport")
	anonymous = middleware.Metrics(counter, latency, anonymous)

	metricsNotifier, err := participant.NewMetricsNotifier(svcName, promclient.DefaultRegisterer)
	if err != nil {
		return err
	}
	notifiers := []participant.StatusNotifier{metricsNotifier}

	var pubsub mqtt.PubSub
	if cfg.MQTTAddress != "" {
		pubsub, err = mqtt.NewPubSub(mqtt.Config{
			Address:       cfg.MQTTAddress,
			QoS:           cfg.MQTTQoS,
			ClientID:      cfg.ClientID,
			ClientKey:     cfg.ClientKey,
			DomainID:      cfg.DomainID,
			ChannelID:     cfg.ChannelID,
			ParticipantID: cfg.ParticipantID,
			Timeout:       cfg.MQTTTimeout,
		}, logger)
		if err != nil {
			return errors.Join(errors.New("failed to initialize mqtt client"), err)
		}
		defer func() {
			if err := pubsub.Disconnect(context.Background()); err != nil {
				logger.Warn("failed to disconnect from mqtt broker", slog.Any("error", err))
			}
		}()
		notifiers = append(notifiers, mqtt.NewNotifier(pubsub, cfg.DomainID, cfg.ChannelID))
	}

	svc := participant.NewService(cfg, anonymous, tr, participant.Notifiers(notifiers...), storage.NewInMemoryStorage(), logger)

	if pubsub != nil {
		if err := mqtt.SubscribeRounds(ctx, pubsub, cfg.DomainID, cfg.ChannelID, svc.Nudge, logger); err != nil {
			return errors.Join(errors.New("failed to subscribe to round announcements"), err)
		}
	}

	httpServerConfig := server.Config{Port: defHTTPPort}
	if err := env.ParseWithOptions(&httpServerConfig, env.Options{Prefix: envPrefixHTTP}); err != nil {
		return fmt.Errorf("failed to load %s HTTP server configuration: %w", svcName, err)
	}

	hs := httpserver.NewServer(ctx, cancel, svcName, httpServerConfig, api.MakeHandler(svc, logger, cfg.ParticipantID), logger)

	g.Go(func() error {
		return hs.Start()
	})

	g.Go(func() error {
		return server.StopSignalHandler(ctx, cancel, logger, svcName, hs)
	})

	var runErr error
	g.Go(func() error {
		defer cancel()
		runErr = svc.Run(ctx)

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Warn(fmt.Sprintf("%s service exited", svcName), slog.Any("error", err))
	}

	return runErr
}
