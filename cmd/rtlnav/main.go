package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/curbz/rtl-navigator/internal/failsafe"
	"github.com/curbz/rtl-navigator/internal/logging"
	"github.com/curbz/rtl-navigator/internal/mockserver"
	"github.com/curbz/rtl-navigator/internal/navigator"
	"github.com/curbz/rtl-navigator/internal/params"
	"github.com/curbz/rtl-navigator/internal/telemetry"
	"github.com/curbz/rtl-navigator/internal/xplaneapi/xpconnect"
)

const mockPort = "8086"

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	logCfg, err := logging.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	logFile, err := logging.Setup(logCfg)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	defer logFile.Close()

	navCfg, err := navigator.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	paramsCfg, err := params.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	telemetryCfg, err := telemetry.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	failsafeCfg, err := failsafe.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	xpCfg, err := xpconnect.LoadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	store := params.NewStore(params.Defaults)
	if _, err := store.Reload(paramsCfg.File); err != nil {
		log.Fatalf("FATAL: could not load params: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.Watch(ctx, paramsCfg.File, paramsCfg.RefreshInterval)

	var sink navigator.Telemetry = telemetry.NewLogSink()
	var publisher *telemetry.MQTTPublisher
	if telemetryCfg.Broker != "" {
		publisher = telemetry.NewMQTTPublisher(telemetryCfg)
		if err := publisher.Connect(ctx); err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		defer publisher.Close(context.Background())
		sink = telemetry.Fanout{publisher, sink}
	}

	nav := navigator.New(navCfg, store, sink)

	// without a ground link there are no heartbeats to watch
	var watchdog *failsafe.LinkWatchdog
	if publisher != nil && failsafeCfg.LinkTimeout > 0 {
		watchdog = failsafe.NewLinkWatchdog(failsafeCfg.LinkTimeout, linkLossAction(nav))
		defer watchdog.Stop()
	}

	if publisher != nil {
		err := publisher.SubscribeCommands(ctx, func(cmd telemetry.Command) {
			handleCommand(cmd, nav, store, watchdog)
		})
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}

	if xpCfg.Mock {
		srv := mockserver.Start(mockPort, mockserver.Linear(
			mockserver.Sample{Lat: 47.3977, Lon: 8.5456, Elevation: 488, TruePsi: 45, OnGround: true},
			mockserver.Sample{Lat: 47.4120, Lon: 8.5660, Elevation: 560, TruePsi: 45},
			300,
		), 100*time.Millisecond)
		defer srv.Shutdown(context.Background())
		xpCfg.RestBaseURL = "http://127.0.0.1:" + mockPort + "/api/v2"
		xpCfg.WebSocketURL = "ws://127.0.0.1:" + mockPort + "/api/v2"
		time.Sleep(200 * time.Millisecond)
	}

	xpc := xpconnect.New(xpCfg, nav)
	go func() {
		if err := xpc.Start(ctx); err != nil {
			log.Errorf("x-plane link ended: %v", err)
			stop()
		}
	}()

	period := time.Duration(float64(time.Second) / navCfg.RateHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Printf("navigator running at %.1f Hz", navCfg.RateHz)
	for {
		select {
		case <-ctx.Done():
			log.Println("shutting down")
			return
		case <-ticker.C:
			nav.Cycle()
		}
	}
}

// linkLossAction requests RTL. A refusal is returned so the watchdog keeps
// watching instead of latching a failsafe that never happened.
func linkLossAction(nav *navigator.Navigator) func() error {
	return func() error {
		if err := nav.SetMode(navigator.ModeRTL); err != nil {
			return fmt.Errorf("RTL refused: %w", err)
		}
		return nil
	}
}

func handleCommand(cmd telemetry.Command, nav *navigator.Navigator, store *params.Store, watchdog *failsafe.LinkWatchdog) {
	if watchdog != nil {
		watchdog.Reset()
	}

	switch cmd.Kind {
	case telemetry.CommandMode:
		mode, err := navigator.ParseMode(cmd.Mode)
		if err != nil {
			log.Warnf("mode command: %v", err)
			return
		}
		if err := nav.SetMode(mode); err != nil {
			log.Warnf("mode command %s refused: %v", mode, err)
			return
		}
		// an explicit mode from the ground ends a link-loss failsafe
		if watchdog != nil && watchdog.IsTriggered() {
			watchdog.Clear()
		}
		log.Infof("mode %s requested by ground station", mode)

	case telemetry.CommandParam:
		if err := store.Set(strings.ToUpper(cmd.Param), cmd.Value); err != nil {
			log.Warnf("param command: %v", err)
		}

	case telemetry.CommandHome:
		nav.SetHome(cmd.Home)
		log.Infof("home set by ground station to %.6f, %.6f, %.1f m", cmd.Home.Lat, cmd.Home.Lon, cmd.Home.Alt)
	}
}
