package app

import (
	"log"
	"time"

	"github.com/ayusman/handeye/internal/detector"
	"github.com/ayusman/handeye/internal/store"
	"gocv.io/x/gocv"
)

// Start opens the local camera and begins the capture loop. Each frame with a
// detected hand is submitted; frames without one produce no event.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.camera == nil {
		return ErrNoCamera
	}

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runCapture(a.stopCh, a.doneCh)

	log.Println("Capture pipeline started")
	return nil
}

// Stop halts the capture loop and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}

	close(stopCh)
	<-doneCh

	a.mu.RLock()
	defer a.mu.RUnlock()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Capture pipeline stopped")
}

// IsRunning reports whether the capture loop is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// LatestJPEG returns the most recent camera frame encoded as JPEG, or nil
// before the first frame.
func (a *App) LatestJPEG() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg
}

// runCapture reads frames at the camera's rate until stopCh is closed.
func (a *App) runCapture(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	if _, err := a.BeginSession(store.SourceCamera); err != nil {
		log.Printf("Failed to begin camera session: %v", err)
	}
	defer func() {
		if err := a.EndSession(store.SourceCamera); err != nil {
			log.Printf("Failed to end camera session: %v", err)
		}
	}()

	fps := a.camera.FPS()
	if fps <= 0 {
		fps = 1
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			a.captureOnce()
		}
	}
}

// captureOnce reads, publishes and detects a single camera frame.
func (a *App) captureOnce() {
	a.mu.RLock()
	cam, det := a.camera, a.detector
	a.mu.RUnlock()

	frame, err := cam.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return
	}
	defer frame.Close()

	if buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame); err == nil {
		jpeg := append([]byte(nil), buf.GetBytes()...)
		buf.Close()
		a.mu.Lock()
		a.jpeg = jpeg
		a.mu.Unlock()
	}

	if !a.IsEnabled() || det == nil {
		return
	}

	hands, err := det.Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return
	}
	if len(hands) == 0 {
		return
	}

	// Only the first hand drives the camera
	if _, err := a.submit(store.SourceCamera, detector.FrameFromMat(frame, hands[0])); err != nil {
		log.Printf("Error processing frame: %v", err)
	}
}
