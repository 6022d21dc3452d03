package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handeye/internal/app"
	"github.com/ayusman/handeye/internal/config"
	"github.com/ayusman/handeye/internal/fixtures"
	"github.com/ayusman/handeye/internal/orientation"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(app.FromConfig(config.Default(), nil))
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// viewResponse mirrors app.View with plain pointers so absent samples decode
// as nil.
type viewResponse struct {
	Camera    *orientation.Sample `json:"camera"`
	Raw       *orientation.Sample `json:"raw"`
	Smoothed  *orientation.Sample `json:"smoothed"`
	Enabled   bool                `json:"enabled"`
	Smoothing bool                `json:"smoothing"`
	Gate      bool                `json:"gate"`
	Pushes    uint64              `json:"pushes"`
	Error     string              `json:"error"`
}

func postFrame(t *testing.T, h http.Handler, name string) (*httptest.ResponseRecorder, viewResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/hand", bytes.NewReader(fixtures.MustFrame(name)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var v viewResponse
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, v
}

func TestHandHandler_Post(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a})

	t.Run("hand frame pushes once", func(t *testing.T) {
		rec, v := postFrame(t, s, fixtures.OpenPalmRight)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if v.Pushes != 1 {
			t.Errorf("pushes = %d, want 1", v.Pushes)
		}
		if v.Camera == nil || v.Camera.Eye.X != -2 {
			t.Errorf("camera = %+v, want eye.x -2", v.Camera)
		}
	})

	t.Run("no hand is not an event", func(t *testing.T) {
		rec, v := postFrame(t, s, fixtures.NoHand)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if v.Pushes != 1 {
			t.Errorf("pushes = %d, want 1", v.Pushes)
		}
	})

	t.Run("pinched hand pushes an absent sample", func(t *testing.T) {
		_, v := postFrame(t, s, fixtures.OKSign)
		if v.Pushes != 2 {
			t.Errorf("pushes = %d, want 2", v.Pushes)
		}
		if v.Raw != nil {
			t.Errorf("raw = %+v, want null", v.Raw)
		}
		if v.Smoothed == nil {
			t.Error("smoothed should keep the last present value")
		}
	})

	t.Run("malformed frame", func(t *testing.T) {
		rec, v := postFrame(t, s, fixtures.Truncated)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
		if v.Error == "" {
			t.Error("expected error message")
		}
	})

	t.Run("only POST without upgrade", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/hand", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestCameraHandler_Get(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a})

	get := func() viewResponse {
		req := httptest.NewRequest(http.MethodGet, "/api/camera", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var v viewResponse
		if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		return v
	}

	if v := get(); v.Camera != nil || v.Pushes != 0 {
		t.Errorf("initial view = %+v, want empty", v)
	}

	postFrame(t, s, fixtures.OpenPalmRight)
	for i := 0; i < 3; i++ {
		if v := get(); v.Pushes != 1 {
			t.Fatalf("reading the camera pushed: pushes = %d", v.Pushes)
		}
	}
}

func TestSettings(t *testing.T) {
	a := newTestApp(t)
	s := New(Config{App: a})

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"smoothing": false, "gate": false}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var got settingsResponse
	json.NewDecoder(rec.Body).Decode(&got)

	want := settingsResponse{Enabled: true, Smoothing: false, Gate: false}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
	if a.SmoothingEnabled() || a.GateEnabled() {
		t.Error("app toggles should follow the PUT body")
	}

	req = httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{`))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid body: expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/settings", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE: expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

type fakeSource struct {
	jpeg []byte
}

func (f *fakeSource) LatestJPEG() []byte { return f.jpeg }

func TestStreamHandler(t *testing.T) {
	src := &fakeSource{jpeg: []byte{0xFF, 0xD8, 0xFF, 0xD9}}
	h := NewStreamHandler(src, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	// The same frame is only sent once
	if n := strings.Count(body, "--frame"); n != 1 {
		t.Errorf("got %d parts, want 1", n)
	}
	if !strings.Contains(body, "Content-Length: 4") {
		t.Error("part should carry the JPEG length")
	}
}

func TestStreamHandler_MethodNotAllowed(t *testing.T) {
	h := NewStreamHandler(&fakeSource{}, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/stream", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
