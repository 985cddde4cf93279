package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.FPS != 15 || !cfg.Camera.Mirror || cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Detector.MaxHands != 2 || cfg.Detector.MinDetectionConfidence != 0.7 {
		t.Errorf("detector = %+v", cfg.Detector)
	}
	if cfg.Trigger.Threshold != 3*time.Second || cfg.Trigger.Cooldown != time.Second {
		t.Errorf("trigger = %+v", cfg.Trigger)
	}
	if cfg.Capture.Prefix != "selfie" || cfg.Capture.Format != "jpg" || cfg.Capture.Backend != "local" {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Notify.Redis.Channel != "peacecam:captures" {
		t.Errorf("redis channel = %q", cfg.Notify.Redis.Channel)
	}
	if cfg.Plugins.Timeout != 5*time.Second {
		t.Errorf("plugins timeout = %v", cfg.Plugins.Timeout)
	}
	if cfg.Display.Title != "Gesture Recognition" {
		t.Errorf("display title = %q", cfg.Display.Title)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
camera:
  device_id: 1
  mirror: false
trigger:
  threshold: 5s
  cooldown: 0s
capture:
  backend: s3
  format: png
  s3:
    bucket: selfies
    region: eu-west-1
preview:
  enabled: true
  addr: 127.0.0.1:9000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.DeviceID != 1 || cfg.Camera.Mirror {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Trigger.Threshold != 5*time.Second || cfg.Trigger.Cooldown != 0 {
		t.Errorf("trigger = %+v", cfg.Trigger)
	}
	if cfg.Capture.S3.Bucket != "selfies" || cfg.Capture.Format != "png" {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if !cfg.Preview.Enabled || cfg.Preview.Addr != "127.0.0.1:9000" {
		t.Errorf("preview = %+v", cfg.Preview)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PEACECAM_TRIGGER_THRESHOLD", "2s")
	t.Setenv("PEACECAM_CAPTURE_DIR", "/tmp/shots")
	t.Setenv("PEACECAM_LOG_LEVEL", "debug")

	cfg, err := Load(writeConfig(t, "trigger:\n  threshold: 4s\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Trigger.Threshold != 2*time.Second {
		t.Errorf("threshold = %v, want env value 2s", cfg.Trigger.Threshold)
	}
	if cfg.Capture.Dir != "/tmp/shots" {
		t.Errorf("dir = %q", cfg.Capture.Dir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() should fail for a missing explicit file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero threshold", "trigger:\n  threshold: 0s\n"},
		{"zero width", "camera:\n  width: 0\n"},
		{"negative cooldown", "trigger:\n  cooldown: -1s\n"},
		{"bad backend", "capture:\n  backend: ftp\n"},
		{"bad format", "capture:\n  format: gif\n"},
		{"s3 without bucket", "capture:\n  backend: s3\n"},
		{"confidence above one", "detector:\n  min_detection_confidence: 1.5\n"},
		{"bad log level", "log:\n  level: loud\n"},
		{"prefix with slash", "capture:\n  prefix: a/b\n"},
		{"redis without addr", "notify:\n  redis:\n    enabled: true\n    addr: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("Load() should reject the config")
			}
		})
	}
}
