// Command pulsemon reads the pulse acquisition front end over a serial port,
// decodes its frame stream into voltage samples, continuously estimates the
// heart rate from the active window, and serves results over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/orangelab/pulsemon/internal/api"
	"github.com/orangelab/pulsemon/internal/config"
	"github.com/orangelab/pulsemon/internal/db"
	"github.com/orangelab/pulsemon/internal/pulse"
	"github.com/orangelab/pulsemon/internal/serialmux"
	"github.com/orangelab/pulsemon/internal/version"
)

var (
	devMode     = flag.Bool("dev", false, "run against a synthetic front end instead of real hardware")
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	portPath    = flag.String("port", "", "serial port to use (defaults to the enabled stored config)")
	baudRate    = flag.Int("baud", 115200, "serial baud rate")
	unframed    = flag.Bool("unframed", false, "treat the stream as bare ADC bytes (one byte per sample, no framing)")
	dbFile      = flag.String("db", "pulsemon.db", "configuration database path")
	configFile  = flag.String("config", "", "optional tuning config JSON (overrides stored tuning)")
	showVersion = flag.Bool("version", false, "print version information and exit")
)

// loadTuning resolves the startup tuning document: an explicit -config file
// wins, otherwise the last document persisted through the API, otherwise
// defaults.
func loadTuning(database *db.DB) (*config.Config, error) {
	if *configFile != "" {
		return config.Load(*configFile)
	}
	return database.LoadTuning()
}

// resolvePort picks the serial port: the -port flag wins, otherwise the
// enabled stored configuration.
func resolvePort(database *db.DB) (string, serialmux.PortOptions, error) {
	if *portPath != "" {
		return *portPath, serialmux.PortOptions{BaudRate: *baudRate}, nil
	}
	stored, err := database.EnabledPortConfig()
	if err != nil {
		return "", serialmux.PortOptions{}, err
	}
	if stored == nil {
		return "", serialmux.PortOptions{}, errors.New("no -port flag and no enabled stored port config")
	}
	return stored.PortPath, serialmux.PortOptions{
		BaudRate: stored.BaudRate,
		DataBits: stored.DataBits,
		StopBits: stored.StopBits,
		Parity:   stored.Parity,
	}, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("pulsemon %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	log.Printf("pulsemon %s starting", version.Version)

	if *listen == "" {
		log.Fatal("listen address is required")
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open configuration database: %v", err)
	}
	defer database.Close()

	tuning, err := loadTuning(database)
	if err != nil {
		log.Fatalf("failed to load tuning config: %v", err)
	}
	store := config.NewStore(tuning)
	settings := store.Current()

	var mux serialmux.SerialMuxInterface
	portInfo := "synthetic"
	if *devMode {
		mux = serialmux.NewMockSerialMux(settings.SamplingRateHz, 72)
	} else {
		path, opts, err := resolvePort(database)
		if err != nil {
			log.Fatalf("failed to resolve serial port: %v", err)
		}
		mux, err = serialmux.NewRealSerialMux(path, opts)
		if err != nil {
			log.Fatalf("failed to open serial port %s: %v", path, err)
		}
		portInfo = fmt.Sprintf("%s @ %d", path, opts.BaudRate)
	}
	defer mux.Close()

	monitor := pulse.NewMonitor(store, nil, *unframed)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mux.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// feed received chunks into the decode pipeline
	wg.Add(1)
	go func() {
		defer wg.Done()
		id, c := mux.Subscribe()
		defer mux.Unsubscribe(id)
		for {
			select {
			case chunk, ok := <-c:
				if !ok {
					return
				}
				monitor.HandleChunk(chunk)
			case <-ctx.Done():
				log.Print("ingest routine terminated")
				return
			}
		}
	}()

	// evaluation loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("evaluation loop failed: %v", err)
		}
		log.Print("evaluation routine terminated")
	}()

	// HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()

		handler := api.LoggingMiddleware(api.NewServer(monitor, database, portInfo).ServeMux())
		server := &http.Server{
			Addr:    *listen,
			Handler: handler,
		}

		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Print("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Print("graceful shutdown complete")
}
