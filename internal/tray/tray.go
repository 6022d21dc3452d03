// Package tray provides a system tray menu for toggling hand tracking.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Toggle identifies one of the tray's on/off switches.
type Toggle int

const (
	// ToggleTracking turns frame processing on or off.
	ToggleTracking Toggle = iota
	// ToggleSmoothing switches the camera between smoothed and raw values.
	ToggleSmoothing
	// ToggleGate turns the pinch gate on or off.
	ToggleGate
)

// String returns the menu label of the toggle.
func (t Toggle) String() string {
	switch t {
	case ToggleTracking:
		return "Tracking"
	case ToggleSmoothing:
		return "Smoothing"
	case ToggleGate:
		return "Pinch gate"
	default:
		return fmt.Sprintf("Toggle(%d)", int(t))
	}
}

// State holds the on/off value of every toggle.
type State struct {
	Tracking  bool
	Smoothing bool
	Gate      bool
}

func (s *State) get(t Toggle) bool {
	switch t {
	case ToggleTracking:
		return s.Tracking
	case ToggleSmoothing:
		return s.Smoothing
	default:
		return s.Gate
	}
}

func (s *State) set(t Toggle, v bool) {
	switch t {
	case ToggleTracking:
		s.Tracking = v
	case ToggleSmoothing:
		s.Smoothing = v
	default:
		s.Gate = v
	}
}

var toggles = []Toggle{ToggleTracking, ToggleSmoothing, ToggleGate}

// Tray represents the system tray application.
type Tray struct {
	onToggle func(t Toggle, enabled bool)
	onOpen   func()
	onQuit   func()
	state    State
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggles map[Toggle]*systray.MenuItem
	menuCamera  *systray.MenuItem
}

// New creates a new Tray showing the given initial state.
func New(initial State) *Tray {
	return &Tray{
		state:       initial,
		menuToggles: make(map[Toggle]*systray.MenuItem),
	}
}

// OnToggle sets the callback invoked after a toggle is flipped.
func (t *Tray) OnToggle(fn func(toggle Toggle, enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback invoked when the open menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Handeye")
	systray.SetTooltip("Handeye hand-driven camera")

	t.mu.Lock()
	for _, tg := range toggles {
		t.menuToggles[tg] = systray.AddMenuItem(label(tg, t.state.get(tg)), "Toggle "+tg.String())
	}
	systray.AddSeparator()

	t.menuCamera = systray.AddMenuItem("Camera: none", "Current camera eye")
	t.menuCamera.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Viewer...", "Open the viewer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Handeye")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggles[ToggleTracking].ClickedCh:
				t.flip(ToggleTracking)
			case <-t.menuToggles[ToggleSmoothing].ClickedCh:
				t.flip(ToggleSmoothing)
			case <-t.menuToggles[ToggleGate].ClickedCh:
				t.flip(ToggleGate)
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func label(tg Toggle, on bool) string {
	if on {
		return "● " + tg.String()
	}
	return "○ " + tg.String()
}

// flip inverts a toggle, updates its menu item and notifies the callback.
func (t *Tray) flip(tg Toggle) bool {
	t.mu.Lock()
	enabled := !t.state.get(tg)
	t.state.set(tg, enabled)

	if item := t.menuToggles[tg]; item != nil {
		item.SetTitle(label(tg, enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(tg, enabled)
	}
	return enabled
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// SetCamera updates the camera readout. An empty string shows "none".
func (t *Tray) SetCamera(desc string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuCamera == nil {
		return
	}
	if desc == "" {
		desc = "none"
	}
	t.menuCamera.SetTitle("Camera: " + desc)
}

// State returns the current toggle values.
func (t *Tray) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}
