package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/handeye/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func seedSession(t *testing.T, s *store.Store, samples int) *store.Session {
	t.Helper()

	sess := &store.Session{Source: store.SourceBrowser, WindowSize: 5, FilterAbsent: true, Gate: true}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	for i := 1; i <= samples; i++ {
		err := s.Samples().Append(&store.Sample{
			SessionID: sess.ID,
			Seq:       int64(i),
			Raw:       json.RawMessage(`{"eye":{"x":-2,"y":0,"z":0},"up":{"x":0,"y":0,"z":0.105}}`),
			Smoothed:  json.RawMessage(`{"eye":{"x":-2,"y":0,"z":0},"up":{"x":0,"y":0,"z":0.105}}`),
		})
		if err != nil {
			t.Fatalf("failed to append sample: %v", err)
		}
	}
	return sess
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSessionHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)

	t.Run("empty list", func(t *testing.T) {
		rec := serve(handler, http.MethodGet, "/api/sessions")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Sessions == nil || len(resp.Sessions) != 0 {
			t.Errorf("expected empty non-nil list, got %v", resp.Sessions)
		}
	})

	t.Run("with sessions", func(t *testing.T) {
		sess := seedSession(t, s, 2)

		rec := serve(handler, http.MethodGet, "/api/sessions")
		var resp listSessionsResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Sessions) != 1 {
			t.Fatalf("expected 1 session, got %d", len(resp.Sessions))
		}
		got := resp.Sessions[0]
		if got.ID != sess.ID || got.Source != "browser" || got.Samples != 2 || got.EndedAt != nil {
			t.Errorf("unexpected session %+v", got)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/api/sessions")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestSessionHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s, 0)
	s.Sessions().End(sess.ID)

	rec := serve(handler, http.MethodGet, "/api/sessions/"+sess.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.EndedAt == nil {
		t.Error("ended session should report ended_at")
	}

	rec = serve(handler, http.MethodGet, "/api/sessions/missing")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing session status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSessionHandler_Samples(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s, 3)

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCount  int
	}{
		{name: "all samples", target: "/api/sessions/" + sess.ID + "/samples", wantStatus: http.StatusOK, wantCount: 3},
		{name: "limited", target: "/api/sessions/" + sess.ID + "/samples?limit=2", wantStatus: http.StatusOK, wantCount: 2},
		{name: "bad limit", target: "/api/sessions/" + sess.ID + "/samples?limit=x", wantStatus: http.StatusBadRequest},
		{name: "missing session", target: "/api/sessions/missing/samples", wantStatus: http.StatusNotFound},
		{name: "unknown subresource", target: "/api/sessions/" + sess.ID + "/other", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodGet, tt.target)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp struct {
				SessionID string `json:"session_id"`
				Samples   []struct {
					Seq int64           `json:"seq"`
					Raw json.RawMessage `json:"raw"`
				} `json:"samples"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Samples) != tt.wantCount {
				t.Errorf("got %d samples, want %d", len(resp.Samples), tt.wantCount)
			}
			if resp.SessionID != sess.ID {
				t.Errorf("session_id = %q, want %q", resp.SessionID, sess.ID)
			}
		})
	}
}

func TestSessionHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSessionHandler(s)
	sess := seedSession(t, s, 1)

	rec := serve(handler, http.MethodDelete, "/api/sessions/"+sess.ID)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	rec = serve(handler, http.MethodDelete, "/api/sessions/"+sess.ID)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
