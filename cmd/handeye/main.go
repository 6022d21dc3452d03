package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/handeye/internal/app"
	"github.com/ayusman/handeye/internal/config"
	"github.com/ayusman/handeye/internal/server"
	"github.com/ayusman/handeye/internal/store"
	"github.com/ayusman/handeye/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "listen address (overrides server.addr)")
	camera := flag.Int("camera", -2, "local camera device, -1 to disable (overrides camera.device)")
	withTray := flag.Bool("tray", false, "show the system tray menu")
	flag.Parse()

	fmt.Println("Handeye - hand-driven camera")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *camera > -2 {
		cfg.Camera.Device = *camera
	}
	if *withTray {
		cfg.Tray.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	var st *store.Store
	if cfg.Store.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
		log.Printf("Recording sessions to %s", cfg.Store.Path)
	}

	a, err := app.New(app.FromConfig(cfg, st))
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer a.Close()

	if a.HasCamera() {
		if err := a.Start(); err != nil {
			log.Fatalf("Failed to start camera: %v", err)
		}
	}

	webDir := cfg.Server.StaticDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(server.Config{
			StaticDir: webDir,
			App:       a,
			StreamFPS: cfg.Camera.FPS,
		}),
	}

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray.Enabled {
		runTray(ctx, stop, a, cfg.Server.Addr)
	} else {
		<-ctx.Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// runTray blocks in the tray event loop until Quit is clicked or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, addr string) {
	t := tray.New(tray.State{
		Tracking:  a.IsEnabled(),
		Smoothing: a.SmoothingEnabled(),
		Gate:      a.GateEnabled(),
	})
	t.OnToggle(func(tg tray.Toggle, enabled bool) {
		switch tg {
		case tray.ToggleTracking:
			a.SetEnabled(enabled)
		case tray.ToggleSmoothing:
			a.SetSmoothing(enabled)
		case tray.ToggleGate:
			a.SetGate(enabled)
		}
		log.Printf("%s set to %v", tg, enabled)
	})
	t.OnOpen(func() {
		log.Printf("Viewer at http://localhost%s/", addr)
	})
	t.OnQuit(stop)

	updates, cancel := a.Subscribe()
	defer cancel()
	go func() {
		for range updates {
			if s, ok := a.Camera().Get(); ok {
				t.SetCamera(fmt.Sprintf("eye (%.2f, %.2f, %.2f)", s.Eye.X, s.Eye.Y, s.Eye.Z))
			} else {
				t.SetCamera("")
			}
		}
	}()

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.handeye/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".handeye", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
