package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/peacecam/internal/app"
	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/config"
	"github.com/ayusman/peacecam/internal/detector"
	"github.com/ayusman/peacecam/internal/display"
	"github.com/ayusman/peacecam/internal/log"
	"github.com/ayusman/peacecam/internal/notify"
	"github.com/ayusman/peacecam/internal/plugin"
	"github.com/ayusman/peacecam/internal/server"
	"github.com/ayusman/peacecam/internal/tray"
	"github.com/ayusman/peacecam/internal/trigger"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Error(log.Fields{"error": err}, "peacecam stopped")
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log.New(log.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	fmt.Println("peacecam - hold up a peace sign to take a selfie")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, quit := context.WithCancel(ctx)
	defer quit()

	det, err := detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Detector.MinDetectionConfidence,
		MinTrackingConf: cfg.Detector.MinTrackingConfidence,
		ScriptPath:      cfg.Detector.Script,
		PythonPath:      cfg.Detector.Python,
	})
	if err != nil {
		return fmt.Errorf("hand detector: %w", err)
	}

	storage, err := newStorage(cfg.Capture)
	if err != nil {
		return err
	}
	dispatcher := capture.NewDispatcher(storage, cfg.Capture.Prefix)

	if cfg.Notify.Redis.Enabled {
		notifier := notify.NewRedis(notify.Config{
			Addr:     cfg.Notify.Redis.Addr,
			Password: cfg.Notify.Redis.Password,
			DB:       cfg.Notify.Redis.DB,
			Channel:  cfg.Notify.Redis.Channel,
		})
		defer notifier.Close()
		dispatcher.Subscribe(notifier)
	}

	if cfg.Plugins.Dir != "" {
		manager := plugin.NewManager(cfg.Plugins.Dir)
		if err := manager.Discover(); err != nil {
			return fmt.Errorf("discover plugins: %w", err)
		}
		log.Info(log.Fields{"dir": cfg.Plugins.Dir, "count": len(manager.Handling(plugin.ActionCaptureSaved))}, "post-capture plugins loaded")

		runner := plugin.NewRunner(manager, plugin.NewExecutor(cfg.Plugins.Timeout))
		defer runner.Wait()
		dispatcher.Subscribe(runner)
	}

	camera := capture.NewDevice(capture.DeviceConfig{
		ID:     cfg.Camera.DeviceID,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	})

	application := app.New(app.Config{
		Trigger: trigger.Config{
			Threshold: cfg.Trigger.Threshold,
			Cooldown:  cfg.Trigger.Cooldown,
		},
		Mirror:     cfg.Camera.Mirror,
		Format:     cfg.Capture.Format,
		PreviewFPS: cfg.Preview.FPS,
	}, camera, det, dispatcher)
	defer application.Close()

	var menu *tray.Tray
	switch {
	case cfg.Display.Window:
		application.SetDisplay(display.NewWindow(cfg.Display.Title))
	case cfg.Display.Tray:
		menu = tray.New()
		menu.OnPause(application.SetPaused)
		menu.OnQuit(quit)
		dispatcher.Subscribe(menu)
	}

	if cfg.Preview.Enabled {
		hub := server.NewHub()
		application.SetPreview(hub)
		dispatcher.Subscribe(hub)
		if menu != nil {
			menu.SetPreviewURL(previewURL(cfg.Preview.Addr))
		}

		srv := server.New(server.Config{Hub: hub, FPS: cfg.Preview.FPS})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Preview.Addr); err != nil {
				log.Error(log.Fields{"addr": cfg.Preview.Addr, "error": err}, "preview server failed")
			}
		}()
	}

	if menu != nil {
		// The tray owns the main goroutine; the loop runs beside it.
		done := make(chan error, 1)
		go func() {
			done <- application.Run(ctx)
			menu.Quit()
		}()
		menu.Run()
		quit()
		err = <-done
	} else {
		err = application.Run(ctx)
	}

	if errors.Is(err, app.ErrSourceUnavailable) {
		return fmt.Errorf("camera %d: %w", cfg.Camera.DeviceID, err)
	}
	return err
}

// previewURL turns a listen address into a browsable stream URL.
func previewURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr + "/api/stream"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port) + "/api/stream"
}

func newStorage(cfg config.Capture) (capture.Storage, error) {
	switch cfg.Backend {
	case "s3":
		s, err := capture.NewS3Storage(capture.S3Config{
			Bucket: cfg.S3.Bucket,
			Region: cfg.S3.Region,
			Prefix: cfg.S3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		log.Info(log.Fields{"bucket": cfg.S3.Bucket, "prefix": cfg.S3.Prefix}, "saving selfies to s3")
		return s, nil
	default:
		log.Info(log.Fields{"dir": cfg.Dir}, "saving selfies locally")
		return capture.NewLocalStorage(cfg.Dir), nil
	}
}
