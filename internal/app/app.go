// Package app ties hand frames to the orientation pipeline: it extracts a
// camera sample per frame, smooths it, and optionally records the run.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/handeye/internal/capture"
	"github.com/ayusman/handeye/internal/config"
	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/opt"
	"github.com/ayusman/handeye/internal/orientation"
	"github.com/ayusman/handeye/internal/reactive"
	"github.com/ayusman/handeye/internal/store"
)

// ErrNoCamera is returned by Start when no local camera is configured.
var ErrNoCamera = errors.New("no camera configured")

// Config holds configuration options for the application.
type Config struct {
	Store     *store.Store
	Camera    config.CameraConfig
	Detector  detector.Config
	Tracking  config.TrackingConfig
	Smoothing config.SmoothingConfig
}

// FromConfig builds an app Config from the loaded file. s may be nil.
func FromConfig(cfg config.Config, s *store.Store) Config {
	return Config{
		Store:     s,
		Camera:    cfg.Camera,
		Detector:  cfg.Detector,
		Tracking:  cfg.Tracking,
		Smoothing: cfg.Smoothing,
	}
}

// View is the state a consumer reads: Camera is what the scene should use,
// which is Smoothed when smoothing is on and Raw otherwise.
type View struct {
	Camera    opt.Value[orientation.Sample] `json:"camera"`
	Raw       opt.Value[orientation.Sample] `json:"raw"`
	Smoothed  opt.Value[orientation.Sample] `json:"smoothed"`
	Enabled   bool                          `json:"enabled"`
	Smoothing bool                          `json:"smoothing"`
	Gate      bool                          `json:"gate"`
	Pushes    uint64                        `json:"pushes"`
}

// App is the main application that turns hand frames into camera samples.
type App struct {
	config    Config
	extractor *orientation.Extractor
	pipeline  *reactive.Pipeline[orientation.Sample]

	// submitMu orders extraction, push and recording of one frame
	submitMu sync.Mutex
	recorder *recorder

	mu        sync.RWMutex
	raw       opt.Value[orientation.Sample]
	enabled   bool
	smoothing bool
	gate      bool

	camera   capture.Camera
	detector detector.Detector
	stopCh   chan struct{}
	doneCh   chan struct{}
	jpeg     []byte
}

// New creates a new App. A local camera is only created when
// Camera.Device is non-negative.
func New(cfg Config) (*App, error) {
	window, err := orientation.NewWindow(cfg.Smoothing.WindowSize, cfg.Smoothing.FilterAbsent)
	if err != nil {
		return nil, fmt.Errorf("create smoothing window: %w", err)
	}

	a := &App{
		config:    cfg,
		extractor: orientation.NewExtractor(cfg.Tracking.Orientation),
		pipeline:  reactive.New(window),
		enabled:   cfg.Tracking.Enabled,
		smoothing: cfg.Smoothing.Enabled,
		gate:      cfg.Tracking.Gate,
	}
	if cfg.Store != nil {
		a.recorder = newRecorder(cfg.Store)
	}

	if cfg.Camera.Device >= 0 {
		a.camera = capture.NewCamera(cfg.Camera.Device, cfg.Camera.FPS)

		// Try MediaPipe first, fall back to mock detector
		if mp, err := detector.NewMediaPipeDetector(cfg.Detector); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand detection")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a, nil
}

// Submit handles one hand frame from a browser. It is the single change event
// of the pipeline: the frame's orientation, present or not, is pushed exactly
// once. A disabled app ignores frames and returns the current view unchanged.
func (a *App) Submit(frame detector.Frame) (View, error) {
	return a.submit(store.SourceBrowser, frame)
}

// submit pushes frame and records it under the open session of source.
func (a *App) submit(source store.Source, frame detector.Frame) (View, error) {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	if !a.IsEnabled() {
		return a.View(), nil
	}

	raw, err := a.extractor.Extract(frame, a.GateEnabled())
	if err != nil {
		return a.View(), err
	}

	// Holding mu across the push keeps raw and smoothed consistent for View
	a.mu.Lock()
	smoothed, err := a.pipeline.Publish(raw)
	if err == nil {
		a.raw = raw
	}
	a.mu.Unlock()
	if err != nil {
		return a.View(), err
	}

	if a.recorder != nil {
		if err := a.recorder.record(source, raw, smoothed); err != nil {
			log.Printf("Failed to record sample: %v", err)
		}
	}

	return a.View(), nil
}

// View returns the current state without touching the window.
func (a *App) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()

	smoothed, pushes := a.pipeline.Snapshot()
	camera := a.raw
	if a.smoothing {
		camera = smoothed
	}

	return View{
		Camera:    camera,
		Raw:       a.raw,
		Smoothed:  smoothed,
		Enabled:   a.enabled,
		Smoothing: a.smoothing,
		Gate:      a.gate,
		Pushes:    pushes,
	}
}

// Camera returns the orientation the scene should use.
func (a *App) Camera() opt.Value[orientation.Sample] {
	return a.View().Camera
}

// Subscribe returns a channel that signals after every push, holding only
// the newest smoothed value. Readers should call View for the full state.
func (a *App) Subscribe() (<-chan opt.Value[orientation.Sample], func()) {
	return a.pipeline.Subscribe()
}

// SetEnabled enables or disables frame processing.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frames are being processed.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetSmoothing selects whether Camera reports the smoothed or raw value.
// The window keeps receiving pushes either way.
func (a *App) SetSmoothing(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.smoothing = enabled
}

// SmoothingEnabled reports whether Camera is smoothed.
func (a *App) SmoothingEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.smoothing
}

// SetGate turns the pinch gate on or off for subsequent frames.
func (a *App) SetGate(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = enabled
}

// GateEnabled reports whether pinched hands are suppressed.
func (a *App) GateEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.gate
}

// Reset clears the smoothing window and the raw value.
func (a *App) Reset() {
	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.pipeline.Reset()
	a.raw = opt.None[orientation.Sample]()
}

// BeginSession starts recording the frames of source under a new session,
// ending any session that source already had open. Sessions of other
// sources are unaffected. It is a no-op returning nil when no store is
// configured.
func (a *App) BeginSession(source store.Source) (*store.Session, error) {
	if a.recorder == nil {
		return nil, nil
	}

	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	return a.recorder.begin(&store.Session{
		Source:       source,
		WindowSize:   a.config.Smoothing.WindowSize,
		FilterAbsent: a.config.Smoothing.FilterAbsent,
		Gate:         a.GateEnabled(),
	})
}

// EndSession stops recording the open session of source, if any.
func (a *App) EndSession(source store.Source) error {
	if a.recorder == nil {
		return nil
	}

	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	return a.recorder.end(source)
}

// ActiveSession returns the open session of source, or nil.
func (a *App) ActiveSession(source store.Source) *store.Session {
	if a.recorder == nil {
		return nil
	}

	a.submitMu.Lock()
	defer a.submitMu.Unlock()

	return a.recorder.current(source)
}

// Store returns the session store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// SetCamera replaces the local camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// HasCamera reports whether a local camera is configured.
func (a *App) HasCamera() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera != nil
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Close stops the capture loop, ends every open session and closes the
// pipeline.
func (a *App) Close() error {
	a.Stop()

	var err error
	if a.recorder != nil {
		a.submitMu.Lock()
		err = a.recorder.endAll()
		a.submitMu.Unlock()
	}
	a.pipeline.Close()
	return err
}
