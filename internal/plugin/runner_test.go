package plugin

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ayusman/peacecam/internal/capture"
)

func TestRunner_CaptureSaved(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell plugins need a POSIX shell")
	}

	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "received.json")

	dir := writeManifest(t, root, Manifest{
		Name:       "recorder",
		Executable: "run.sh",
		Actions:    []string{ActionCaptureSaved},
	})
	script := "#!/bin/sh\ncat > " + out + "\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, root, Manifest{Name: "ignored", Executable: "missing", Actions: []string{"other"}})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(m, NewExecutor(5*time.Second))
	r.CaptureSaved(context.Background(), capture.Result{ID: "0192", Location: "/tmp/selfie.jpg"})
	r.Wait()

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("plugin did not run: %v", err)
	}

	var req struct {
		Action  string         `json:"action"`
		Gesture string         `json:"gesture"`
		Params  capture.Result `json:"params"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if req.Action != ActionCaptureSaved || req.Gesture != GesturePeaceSign {
		t.Errorf("request = %+v", req)
	}
	if req.Params.ID != "0192" || req.Params.Location != "/tmp/selfie.jpg" {
		t.Errorf("params = %+v", req.Params)
	}
}

func TestRunner_NoPlugins(t *testing.T) {
	r := NewRunner(NewManager(""), NewExecutor(0))
	r.CaptureSaved(context.Background(), capture.Result{ID: "x"})
	r.Wait()
}
