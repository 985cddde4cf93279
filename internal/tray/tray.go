// Package tray gives headless peacecam runs a system tray menu to pause
// detection, see the last selfie, open the preview and quit.
package tray

import (
	"context"
	"os/exec"
	"runtime"
	"sync"

	"github.com/ayusman/peacecam/internal/capture"
	"github.com/ayusman/peacecam/internal/log"
	"github.com/getlantern/systray"
)

const (
	titleActive = "● Watching"
	titlePaused = "○ Paused"
	noSelfie    = "Last selfie: none"
)

// Tray is the system tray menu. Run must be called from the main goroutine.
type Tray struct {
	onPause func(paused bool)
	onQuit  func()

	mu         sync.RWMutex
	paused     bool
	last       string
	previewURL string

	ready     chan struct{}
	readyOnce sync.Once

	menuPause *systray.MenuItem
	menuLast  *systray.MenuItem
}

// New creates a Tray that starts unpaused.
func New() *Tray {
	return &Tray{ready: make(chan struct{})}
}

// OnPause sets the callback run when the pause item is toggled.
func (t *Tray) OnPause(fn func(paused bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPause = fn
}

// OnQuit sets the callback run when Quit is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// SetPreviewURL adds an "Open preview" item pointing at url. Call before Run.
func (t *Tray) SetPreviewURL(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.previewURL = url
}

// Run shows the tray and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit removes the tray icon, making Run return. It waits for the menu to
// come up first.
func (t *Tray) Quit() {
	<-t.ready
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("peacecam")
	systray.SetTooltip("peacecam: hold a peace sign to take a selfie")

	t.mu.Lock()
	t.menuPause = systray.AddMenuItem(pauseTitle(t.paused), "Pause or resume gesture detection")
	systray.AddSeparator()
	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Most recent saved selfie")
	t.menuLast.Disable()
	previewURL := t.previewURL
	t.mu.Unlock()

	var previewClicked chan struct{}
	if previewURL != "" {
		systray.AddSeparator()
		previewClicked = systray.AddMenuItem("Open preview...", previewURL).ClickedCh
	}

	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit peacecam")

	t.readyOnce.Do(func() { close(t.ready) })

	go func() {
		for {
			select {
			case <-t.menuPause.ClickedCh:
				t.toggle()
			case <-previewClicked:
				openURL(previewURL)
			case <-menuQuit.ClickedCh:
				t.quit()
				return
			}
		}
	}()
}

// toggle flips the paused state and reports it to the callback.
func (t *Tray) toggle() bool {
	t.mu.Lock()
	t.paused = !t.paused
	paused := t.paused
	if t.menuPause != nil {
		t.menuPause.SetTitle(pauseTitle(paused))
	}
	callback := t.onPause
	t.mu.Unlock()

	if callback != nil {
		callback(paused)
	}
	return paused
}

func (t *Tray) quit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// CaptureSaved shows the selfie's file name as the last selfie.
func (t *Tray) CaptureSaved(_ context.Context, res capture.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = res.Name
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(t.last))
	}
}

// Paused reports whether detection was paused from the menu.
func (t *Tray) Paused() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.paused
}

// LastSelfie returns the name of the last saved selfie, or "".
func (t *Tray) LastSelfie() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

func pauseTitle(paused bool) string {
	if paused {
		return titlePaused
	}
	return titleActive
}

func lastTitle(name string) string {
	if name == "" {
		return noSelfie
	}
	return "Last selfie: " + name
}

func openURL(url string) {
	cmd := browserCommand(runtime.GOOS, url)
	if cmd == nil {
		log.Warn(log.Fields{"os": runtime.GOOS, "url": url}, "no browser opener for this platform")
		return
	}
	if err := cmd.Start(); err != nil {
		log.Warn(log.Fields{"url": url, "error": err}, "open preview")
		return
	}
	go cmd.Wait()
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		return exec.Command("xdg-open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return nil
	}
}
