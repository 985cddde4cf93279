package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/peacecam/internal/log"
	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrServiceNotFound is returned when mediapipe_service.py cannot be located.
	ErrServiceNotFound = errors.New("mediapipe_service.py not found")
	// ErrServiceStart is returned when the service exits or stalls before
	// reporting ready, e.g. because mediapipe is not installed.
	ErrServiceStart = errors.New("mediapipe service failed to start")
	// ErrServiceDown is returned while a crashed service waits to be restarted.
	ErrServiceDown = errors.New("mediapipe service down")
)

// startupTimeout bounds the wait for the ready line; loading the model
// takes a few seconds on a cold start.
var startupTimeout = 30 * time.Second

const maxRestartDelay = 30 * time.Second

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// The service announces itself with a {"ready":true} line. Frames are then
// sent as a 4-byte big-endian length followed by JPEG data; the service
// answers each frame with one JSON line.
type MediaPipeDetector struct {
	config     Config
	scriptPath string
	pythonPath string

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	stdout   *bufio.Reader
	started  bool
	failures int
	retryAt  time.Time
}

// NewMediaPipeDetector locates the service and starts it, failing if it
// does not come up.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findMediaPipeScript()
	}
	if scriptPath == "" {
		return nil, ErrServiceNotFound
	}
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}

	pythonPath := config.PythonPath
	if pythonPath == "" {
		pythonPath = findVenvPython()
	}
	if pythonPath == "" {
		pythonPath = "python3"
	}

	d := &MediaPipeDetector{
		config:     config,
		scriptPath: scriptPath,
		pythonPath: pythonPath,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.start(); err != nil {
		return nil, err
	}
	return d, nil
}

// Detect analyzes a frame and returns detected hand poses. A service that
// died is restarted, with a growing delay between failed attempts.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandPose, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if frame == nil || frame.Empty() {
		return nil, nil
	}

	if !d.started {
		if wait := time.Until(d.retryAt); wait > 0 {
			return nil, fmt.Errorf("%w: retry in %s", ErrServiceDown, wait.Round(time.Millisecond))
		}
		if err := d.start(); err != nil {
			d.fail()
			return nil, err
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		d.abort()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.abort()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.abort()
		return nil, fmt.Errorf("read response: %w", err)
	}

	d.failures = 0
	return parseResponse([]byte(line))
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *MediaPipeDetector) args() []string {
	return []string{
		d.scriptPath,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', -1, 64),
	}
}

// start spawns the service and waits for its ready line.
func (d *MediaPipeDetector) start() error {
	cmd := exec.Command(d.pythonPath, d.args()...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrServiceStart, err)
	}

	reader := bufio.NewReader(stdout)
	if err := awaitReady(reader); err != nil {
		cmd.Process.Kill()
		stdin.Close()
		cmd.Wait()
		return fmt.Errorf("%w: %w", ErrServiceStart, err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = reader
	d.started = true

	log.Info(log.Fields{
		"python": d.pythonPath,
		"script": d.scriptPath,
		"pid":    cmd.Process.Pid,
	}, "mediapipe service started")

	return nil
}

func awaitReady(r *bufio.Reader) error {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- result{line, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return fmt.Errorf("no ready line: %w", res.err)
		}
		var hello struct {
			Ready bool `json:"ready"`
		}
		if err := json.Unmarshal([]byte(res.line), &hello); err != nil || !hello.Ready {
			return fmt.Errorf("unexpected first line %q", res.line)
		}
		return nil
	case <-time.After(startupTimeout):
		return fmt.Errorf("not ready after %s", startupTimeout)
	}
}

// abort kills a service whose pipe broke so a later Detect restarts it.
func (d *MediaPipeDetector) abort() {
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	if err := d.shutdown(); err != nil {
		log.Warn(log.Fields{"error": err.Error()}, "mediapipe service exited")
	}
	d.fail()
}

func (d *MediaPipeDetector) fail() {
	d.failures++
	delay := restartDelay(d.failures)
	d.retryAt = time.Now().Add(delay)
	log.Warn(log.Fields{"failures": d.failures, "retry_in": delay.String()}, "mediapipe service down")
}

// restartDelay doubles from one second per consecutive failure, capped.
func restartDelay(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	delay := time.Second
	for i := 1; i < failures && delay < maxRestartDelay; i++ {
		delay *= 2
	}
	if delay > maxRestartDelay {
		delay = maxRestartDelay
	}
	return delay
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func findMediaPipeScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/mediapipe_service.py",
		"../scripts/mediapipe_service.py",
		filepath.Join(execDir, "scripts/mediapipe_service.py"),
		filepath.Join(os.Getenv("HOME"), ".peacecam/scripts/mediapipe_service.py"),
	}

	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		"../../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".peacecam/venv/bin/python"),
	}

	return firstExisting(candidates)
}

func firstExisting(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonHand represents the JSON structure from the Python service.
type jsonHand struct {
	Points     []jsonPoint `json:"points"`
	Handedness string      `json:"handedness"`
	Score      float64     `json:"score"`
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func parseResponse(line []byte) ([]HandPose, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe service: %s", response.Error)
	}

	result := make([]HandPose, len(response.Hands))
	for i, h := range response.Hands {
		result[i] = h.toHandPose()
	}
	return result, nil
}

// toHandPose keeps at most NumLandmarks points. A short list stays short so
// the classifier can tell a missing landmark from one at the origin.
func (h jsonHand) toHandPose() HandPose {
	n := len(h.Points)
	if n > NumLandmarks {
		n = NumLandmarks
	}

	pose := HandPose{
		Points:     make([]Point3D, n),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
	for i := 0; i < n; i++ {
		pose.Points[i] = Point3D{X: h.Points[i].X, Y: h.Points[i].Y, Z: h.Points[i].Z}
	}

	return pose
}
