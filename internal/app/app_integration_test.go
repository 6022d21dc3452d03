package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/handeye/internal/capture"
	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/store"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestApp_CapturePipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cfg := testConfig()
	cfg.Store = s
	a := newTestApp(t, cfg)

	frames := capture.BlankFrames(1, 640, 480)
	defer frames[0].Close()

	cam := capture.NewMockCamera(frames, true)
	cam.SetFPS(50)
	a.SetCamera(cam)

	mockDetector := detector.NewMockDetector()
	mockDetector.SetHands([]detector.HandLandmarks{detector.OpenPalmLandmarks()})
	a.SetDetector(mockDetector)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !a.IsRunning() {
		t.Error("IsRunning() should be true after Start")
	}

	waitFor(t, 2*time.Second, func() bool { return a.View().Pushes >= 3 })

	if a.LatestJPEG() == nil {
		t.Error("LatestJPEG() should hold the last frame")
	}
	c, ok := a.Camera().Get()
	if !ok || c.Eye.X != -2 {
		t.Errorf("Camera() = %+v, want eye.x -2", a.Camera())
	}

	a.Stop()
	if a.IsRunning() {
		t.Error("IsRunning() should be false after Stop")
	}
	if cam.IsOpen() {
		t.Error("camera should be closed after Stop")
	}

	sessions, err := s.Sessions().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].Source != store.SourceCamera || sessions[0].EndedAt == nil {
		t.Errorf("camera session = %+v", sessions[0])
	}
	if uint64(sessions[0].Samples) != a.View().Pushes {
		t.Errorf("recorded %d samples for %d pushes", sessions[0].Samples, a.View().Pushes)
	}
}

func TestApp_CapturePipeline_NoHands(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	a := newTestApp(t, testConfig())

	frames := capture.BlankFrames(1, 640, 480)
	defer frames[0].Close()

	cam := capture.NewMockCamera(frames, true)
	cam.SetFPS(50)
	a.SetCamera(cam)
	mockDetector := detector.NewMockDetector()
	a.SetDetector(mockDetector)

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return mockDetector.Calls() >= 3 })
	a.Stop()

	if got := a.View().Pushes; got != 0 {
		t.Errorf("frames without a hand should not push, Pushes = %d", got)
	}
	if cam.Reads() < 3 {
		t.Errorf("camera reads = %d, want at least 3", cam.Reads())
	}
}
