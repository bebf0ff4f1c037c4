// Command p2pd runs the Wi-Fi P2P coordinator against wpa_supplicant.
//
// The daemon owns the supplicant's P2P device interface, forms groups on
// behalf of its application sessions and configures addressing on the
// group interface through hook commands.
//
// Usage:
//
//	p2pd [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-iface string        P2P device interface (default "p2p0")
//	-ctrl-dir string     wpa_supplicant control socket directory
//	-state string        State file path (empty to keep state in memory)
//	-plog string         Protocol log file (.plog)
//	-metrics-addr string Serve Prometheus metrics on this address
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-interactive         Run the interactive console
//	-mdns                Mirror local Bonjour services over mDNS
//
// Examples:
//
//	# Run with the console on the default interface
//	p2pd -interactive
//
//	# Run headless with a config file and metrics
//	p2pd -config /etc/p2pd.yaml -metrics-addr :9102
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/p2pcoord/p2pcoord-go/cmd/p2pd/interactive"
	"github.com/p2pcoord/p2pcoord-go/pkg/discovery"
	"github.com/p2pcoord/p2pcoord-go/pkg/driver/wpa"
	plog "github.com/p2pcoord/p2pcoord-go/pkg/log"
	"github.com/p2pcoord/p2pcoord-go/pkg/netcfg"
	"github.com/p2pcoord/p2pcoord-go/pkg/persistence"
	"github.com/p2pcoord/p2pcoord-go/pkg/service"
)

// mdnsTTL is the record TTL of mirrored services.
const mdnsTTL = 120 * time.Second

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "p2pd: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "p2pd: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var console *interactive.Console
	var logOut io.Writer = os.Stderr
	if cfg.Interactive {
		c, err := interactive.New()
		if err != nil {
			return err
		}
		console = c
		logOut = c.Stderr()
	}

	level, _ := parseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))
	logger.Info("p2pd starting", "iface", cfg.Interface, "ctrl", cfg.CtrlPath())

	protoLog, closeLog, err := protocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLog()

	svcConfig := service.DefaultConfig()
	svcConfig.Interface = cfg.Interface
	svcConfig.DeviceType = cfg.DeviceType
	svcConfig.DeviceNamePrefix = cfg.NamePrefix
	svcConfig.GroupCreatingTimeout = cfg.GroupCreatingTimeout
	svcConfig.DiscoveryTimeout = cfg.DiscoveryTimeout
	svcConfig.ProtocolLogger = protoLog
	svcConfig.Logger = logger
	svcConfig.Driver = wpa.New(wpa.Config{
		CtrlPath:       cfg.CtrlPath(),
		Interface:      cfg.Interface,
		Logger:         logger.With("component", "wpa"),
		ProtocolLogger: protoLog,
	})
	svcConfig.NetConfig = netcfg.NewCommandConfigurator(cfg.NetConfig, nil, logger.With("component", "netcfg"))

	if cfg.StateFile != "" {
		store := persistence.NewStore(cfg.StateFile)
		if err := seedDeviceName(store, cfg.DeviceName); err != nil {
			logger.Warn("could not store device name", "error", err)
		}
		svcConfig.Store = store
	}
	if cfg.MDNSMirror {
		adv := discovery.NewMDNSAdvertiser(mdnsTTL)
		defer adv.StopAll()
		svcConfig.Advertiser = adv
	}
	if console != nil {
		svcConfig.Prompter = console
		svcConfig.IsForeground = console.IsForeground
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	svcConfig.Metrics = reg

	svc, err := service.New(svcConfig)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	svc.OnEvent(eventLogger(logger))
	if console != nil {
		console.Attach(svc)
	}

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	logger.Info("service started", "state", svc.State(), "run", svc.RunID())
	svc.Enable()

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runCtx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if console != nil {
		g.Go(func() error {
			console.Run(runCtx, cancel)
			return nil
		})
	}
	g.Go(func() error {
		<-runCtx.Done()
		logger.Info("shutting down")
		return nil
	})

	err = g.Wait()
	if serr := svc.Stop(); serr != nil {
		err = multierr.Append(err, fmt.Errorf("stop service: %w", serr))
	}
	return err
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}

// protocolLogger builds the protocol event sink: the .plog file when
// configured, plus slog output at debug level.
func protocolLogger(cfg Config, logger *slog.Logger) (plog.Logger, func(), error) {
	var loggers []plog.Logger
	closeFn := func() {}

	if cfg.ProtocolLog != "" {
		fl, err := plog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, nil, fmt.Errorf("open protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				logger.Warn("closing protocol log", "error", err)
			}
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, plog.NewSlogAdapter(logger.With("component", "protocol")))
	}

	if len(loggers) == 0 {
		return nil, closeFn, nil
	}
	return plog.NewMultiLogger(loggers...), closeFn, nil
}

// seedDeviceName stores name unless a name is already stored.
func seedDeviceName(store *persistence.Store, name string) error {
	if name == "" {
		return nil
	}
	current, err := store.DeviceName()
	if err != nil || current != "" {
		return err
	}
	return store.SetDeviceName(name)
}

func eventLogger(logger *slog.Logger) service.EventHandler {
	return func(event service.Event) {
		switch event.Type {
		case service.EventStateChanged:
			logger.Info("p2p state changed", "enabled", event.Enabled)
		case service.EventDiscoveryChanged:
			logger.Debug("discovery changed", "discovering", event.Discovering)
		case service.EventPeersChanged:
			logger.Debug("peers changed")
		case service.EventConnectionChanged:
			logger.Info("connection changed", "connected", event.Connected, "info", event.Info.String())
		case service.EventConnectionEstablished:
			if event.Group != nil {
				logger.Info("connection established", "iface", event.Group.Interface, "owner", event.Group.IsOwner)
			}
		case service.EventThisDeviceChanged:
			logger.Debug("this device changed", "device", event.Device.String())
		}
	}
}
