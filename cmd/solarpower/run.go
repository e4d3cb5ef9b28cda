package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/solarpower/internal/api"
	"github.com/nerrad567/solarpower/internal/assets"
	"github.com/nerrad567/solarpower/internal/device"
	"github.com/nerrad567/solarpower/internal/directory"
	"github.com/nerrad567/solarpower/internal/discovery"
	"github.com/nerrad567/solarpower/internal/infrastructure/config"
	"github.com/nerrad567/solarpower/internal/infrastructure/logging"
	"github.com/nerrad567/solarpower/internal/infrastructure/metrics"
	"github.com/nerrad567/solarpower/internal/infrastructure/mqtt"
	"github.com/nerrad567/solarpower/internal/telemetry"
	"github.com/nerrad567/solarpower/internal/thing"
)

// run wires every component and blocks until ctx is cancelled.
// Deferred Close calls run in reverse order of startup.
func run(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Logging, version)
	defer log.Close() //nolint:errcheck // nothing useful to do on shutdown

	log.Info("starting solar power monitor",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	dev, err := buildDevice(cfg.Device)
	if err != nil {
		return err
	}
	dev.SetLogger(log.With("component", "device"))
	log.Info("device ready",
		"index", dev.Index(),
		"transport", cfg.Device.Transport,
		"properties", len(dev.Properties()),
	)

	thingCfg := thing.NewConfig(thing.Params{
		Protocol:    cfg.Thing.Protocol,
		Hostname:    cfg.Thing.Hostname,
		Port:        cfg.API.Port,
		Device:      cfg.Device.Index,
		Directories: cfg.DirectoryURLs(),
		TTL:         cfg.Directory.TTL,
	})
	fsys := assets.Source(cfg.Thing.TemplateFile, cfg.Thing.DescriptionFile)
	generator := thing.NewGenerator(fsys, assets.TemplateName, thingCfg)
	log.Info("thing identity", "base", thingCfg.Base(), "uuid", thingCfg.UUID())

	// Metrics are optional; a nil Recorder disables request accounting.
	var (
		m        *metrics.Metrics
		recorder api.Recorder
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		recorder = m
		dev.OnChange(func(c device.Change) {
			if v, ok := device.Numeric(c.Value); ok {
				m.SetPropertyValue(c.Code, v)
			}
		})
	}

	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		Description: cfg.Thing.Description,
		Logger:      log.With("component", "api"),
		Device:      dev,
		Generator:   generator,
		Assets:      fsys,
		Recorder:    recorder,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = startMirror(ctx, cfg.MQTT, dev, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	} else {
		log.Info("MQTT state mirror disabled")
	}

	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics, m, log.With("component", "metrics"))
		metricsServer.AddCheck("api", apiServer)
		if mqttClient != nil {
			metricsServer.AddCheck("mqtt", mqttClient)
		}
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			log.Info("stopping metrics server")
			if closeErr := metricsServer.Close(); closeErr != nil {
				log.Error("error stopping metrics server", "error", closeErr)
			}
		}()
	}

	if cfg.Discovery.MDNS.Enabled {
		advertiser := discovery.NewAdvertiser(cfg.Discovery.MDNS)
		info := discovery.Info{
			Instance: fmt.Sprintf("SolarPowerMonitor%d", cfg.Device.Index),
			Port:     cfg.API.Port,
			TDPath:   "/api",
			UUID:     thingCfg.UUID(),
		}
		// Discovery is best effort; the API works without it.
		if err := advertiser.Advertise(info); err != nil {
			log.Warn("mDNS advertisement failed", "error", err)
		} else {
			log.Info("mDNS advertisement started", "instance", info.Instance, "port", info.Port)
			defer advertiser.Stop()
		}
	}

	registrar := directory.New(directory.Options{
		Directories: thingCfg.Directories(),
		TTL:         thingCfg.TTLSeconds(),
		Timeout:     time.Duration(cfg.Directory.Timeout) * time.Second,
		Source:      generator.Generate,
	})
	registrar.SetLogger(log.With("component", "directory"))
	if m != nil {
		registrar.OnResult(func(r directory.Result) {
			m.ObserveRegistration(r.Directory, r.OK())
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := registrar.Run(ctx); err != nil {
			log.Error("directory registrar stopped", "error", err)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	wg.Wait()
	log.Info("solar power monitor stopped")
	return nil
}

// startMirror connects to the broker and starts mirroring device changes.
func startMirror(ctx context.Context, cfg config.MQTTConfig, dev *device.Device, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.With("component", "mqtt"))
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)

	mirror := telemetry.New(dev, client, telemetry.Options{Commands: cfg.Commands})
	mirror.SetLogger(log.With("component", "telemetry"))
	if err := mirror.Start(ctx); err != nil {
		client.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("starting state mirror: %w", err)
	}
	return client, nil
}
