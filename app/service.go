// Package app wires the engine to its transports, persistence and telemetry.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/gatealloc/api"
	"github.com/kilianp07/gatealloc/config"
	"github.com/kilianp07/gatealloc/core/engine"
	coremetrics "github.com/kilianp07/gatealloc/core/metrics"
	coremon "github.com/kilianp07/gatealloc/core/monitoring"
	"github.com/kilianp07/gatealloc/core/snapshot"
	"github.com/kilianp07/gatealloc/core/store"
	"github.com/kilianp07/gatealloc/infra/logger"
	"github.com/kilianp07/gatealloc/infra/metrics"
	"github.com/kilianp07/gatealloc/infra/monitoring"
	"github.com/kilianp07/gatealloc/infra/mqtt"
	"github.com/kilianp07/gatealloc/internal/eventbus"
	"github.com/kilianp07/gatealloc/qa/scenarios"
)

const shutdownTimeout = 5 * time.Second

// Service owns the engine and every adapter around it.
type Service struct {
	Engine *engine.Engine

	cfg      *config.Config
	bus      *eventbus.Bus
	sink     coremetrics.MetricsSink
	snaps    snapshot.Store
	mqtt     *mqtt.PahoClient
	srv      *http.Server
	logClose io.Closer
	log      logger.Logger
}

// New builds a Service from cfg. Nothing is served until Run.
func New(cfg *config.Config) (*Service, error) {
	logClose, err := logger.Configure(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	snaps, err := snapshot.Open(cfg.Snapshot.Backend, cfg.Snapshot.Path)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	bus := eventbus.New()
	eng := engine.New(store.New(cfg.Engine.HistoryLimit),
		engine.WithLogger(logger.New("engine")),
		engine.WithBus(bus),
	)

	s := &Service{
		Engine:   eng,
		cfg:      cfg,
		bus:      bus,
		sink:     sink,
		snaps:    snaps,
		logClose: logClose,
		log:      log,
	}
	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT, eng)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.mqtt = client
	}
	s.srv = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(eng, cfg.HTTP.Token, logger.New("api")),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSeconds) * time.Second,
	}
	return s, nil
}

// Run restores or seeds the engine, starts every adapter and blocks until ctx
// is cancelled or the HTTP server fails. A final snapshot is saved on exit.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()
	if err := s.restoreOrSeed(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	collectorDone := metrics.StartEventCollector(ctx, s.bus, s.sink)
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	var feedDone <-chan struct{}
	if s.mqtt != nil {
		feed := s.Engine.Subscribe()
		defer s.Engine.Unsubscribe(feed)
		feedDone = mqtt.StartFeed(ctx, feed, s.mqtt, logger.New("mqtt_feed"))
	}
	snapDone := s.snapshotLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("http shutdown: %v", err)
	}
	<-collectorDone
	<-snapDone
	if feedDone != nil {
		<-feedDone
	}
	if err := s.saveSnapshot(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	return runErr
}

func (s *Service) restoreOrSeed(ctx context.Context) error {
	snap, ok, err := s.snaps.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if ok {
		return s.Engine.Restore(snap)
	}
	if s.cfg.Seed.Scenario == "" {
		return nil
	}
	sc, err := scenarios.Load(s.cfg.Seed.Scenario)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if s.cfg.Seed.GatesOnly {
		err = scenarios.RegisterGates(s.Engine, sc)
	} else {
		_, err = scenarios.Run(s.Engine, sc, nil)
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", sc.Name, err)
	}
	s.log.Infof("seeded from scenario %s: %s", sc.Name, s.Engine.Stats())
	return nil
}

func (s *Service) snapshotLoop(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if s.cfg.Snapshot.Backend == "none" {
		close(done)
		return done
	}
	go func() {
		defer close(done)
		t := time.NewTicker(s.cfg.Snapshot.Interval())
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := s.saveSnapshot(ctx); err != nil {
					s.log.Errorf("snapshot: %v", err)
					coremon.CaptureException(err, map[string]string{"module": "snapshot"})
				}
			}
		}
	}()
	return done
}

func (s *Service) saveSnapshot(ctx context.Context) error {
	if s.cfg.Snapshot.Backend == "none" {
		return nil
	}
	snap := s.Engine.Snapshot()
	if err := s.snaps.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.log.Debugf("snapshot saved: %d gates, %d assignments", len(snap.Gates), len(snap.Assignments))
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	s.Engine.Close()
	s.bus.Close()
	coremetrics.CloseSink(s.sink)
	var errs []error
	if err := s.snaps.Close(); err != nil {
		errs = append(errs, fmt.Errorf("snapshot store: %w", err))
	}
	coremon.Flush(2 * time.Second)
	if s.logClose != nil {
		if err := s.logClose.Close(); err != nil {
			errs = append(errs, fmt.Errorf("log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
