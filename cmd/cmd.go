package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/baratron-integration/internal/pkg/baratron"
	"github.com/anicoll/baratron-integration/internal/pkg/config"
	"github.com/anicoll/baratron-integration/internal/pkg/mqtt"
	"github.com/anicoll/baratron-integration/internal/pkg/publisher"
	"github.com/anicoll/baratron-integration/internal/pkg/server"
)

const shutdownTimeout = 5 * time.Second

type readingServer interface {
	readingSink
	Handler() http.Handler
	Close()
}

// PollCommand prints the device state once, or a table of readings with --stream.
func PollCommand(ctx *cli.Context) error {
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	client := baratron.New(cfg.BaratronCfg)
	opts := pollOptions{
		stream:   ctx.Bool("stream"),
		interval: ctx.Duration("interval"),
	}
	if err := poll(ctx.Context, client, opts, ctx.App.Writer, ctx.App.ErrWriter); err != nil {
		// already reported on stderr.
		return cli.Exit("", 1)
	}
	return nil
}

// ServeCommand polls on a schedule and serves readings over HTTP and MQTT.
func ServeCommand(ctx *cli.Context) error {
	cfg, err := configFromContext(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	client := baratron.New(cfg.BaratronCfg)
	pub := publisher.New(client.Registry())
	if cfg.MqttCfg.Enabled() {
		device := publisher.DeviceFor(client.Address())
		mqttSvc := mqtt.New(mqtt.NewClient(cfg.MqttCfg, device.ID))
		if err := mqttSvc.Connect(); err != nil {
			return fmt.Errorf("connecting to mqtt broker %q: %w", cfg.MqttCfg.Host, err)
		}
		defer mqttSvc.Disconnect()
		if err := pub.RegisterPublisher("mqtt", mqttSvc); err != nil {
			return err
		}
	}

	return serve(ctx.Context, cfg.ServerCfg, client, server.New(), pub, logger)
}

func configFromContext(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if ctx.Args().Present() {
		cfg.BaratronCfg.Address = ctx.Args().First()
	}
	if ctx.IsSet("timeout") {
		cfg.BaratronCfg.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("log-level") {
		cfg.LogLevel = ctx.String("log-level")
	}
	if ctx.IsSet("mqtt-host") {
		cfg.MqttCfg.Host = ctx.String("mqtt-host")
	}
	if ctx.IsSet("mqtt-user") {
		cfg.MqttCfg.Username = ctx.String("mqtt-user")
	}
	if ctx.IsSet("mqtt-pass") {
		cfg.MqttCfg.Password = ctx.String("mqtt-pass")
	}
	if ctx.IsSet("listen") {
		cfg.ServerCfg.ListenAddr = ctx.String("listen")
	}
	if ctx.IsSet("schedule") {
		cfg.ServerCfg.PollSchedule = ctx.String("schedule")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger writes to stderr so stdout carries only readings.
func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stderr"}
	logCfg.ErrorOutputPaths = []string{"stderr"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func serve(ctx context.Context, cfg *config.ServerConfig, svc BaratronService, srv readingServer, pub readingPublisher, logger *zap.Logger) error {
	if err := svc.Connect(ctx); err != nil {
		return err
	}
	defer svc.Close()

	eg, ctx := errgroup.WithContext(ctx)

	cronLog := cronLogger{logger: logger.Sugar()}
	c := cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog)))
	if _, err := c.AddFunc(cfg.PollSchedule, func() {
		pollOnce(ctx, svc, srv, pub, logger)
	}); err != nil {
		return fmt.Errorf("invalid poll schedule %q: %w", cfg.PollSchedule, err)
	}

	httpSrv := &http.Server{
		Handler:      srv.Handler(),
		Addr:         cfg.ListenAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	eg.Go(func() error {
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})

	eg.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("context done")
		srv.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func pollOnce(ctx context.Context, svc BaratronService, sink readingSink, pub readingPublisher, logger *zap.Logger) {
	reading, err := svc.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, baratron.ErrTimeout) {
			logger.Warn("device did not respond", zap.Error(err))
		} else {
			logger.Error("poll failed", zap.Error(err))
		}
		sink.Fail(err)
		return
	}
	sink.Update(reading)
	if err := pub.PublishReading(ctx, reading); err != nil {
		logger.Error("failed to publish reading", zap.Error(err))
	}
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
