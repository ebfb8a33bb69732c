package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MoonLamp/internal/device"
	"MoonLamp/internal/model"
)

type fakeSource struct {
	sig    *model.Signal
	points []model.PricePoint
}

func (f *fakeSource) Latest() (*model.Signal, bool) { return f.sig, f.sig != nil }
func (f *fakeSource) Points() []model.PricePoint    { return f.points }

func do(t *testing.T, s *Server, path, remote string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthAndStatus(t *testing.T) {
	src := &fakeSource{}
	s := NewServer(zerolog.Nop(), ":0", src, device.DefaultSettings())

	assert.Equal(t, http.StatusOK, do(t, s, "/health/live", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, "/status", "").Code)

	src.sig = &model.Signal{Symbol: "ethereum", Price: 3000, Status: model.StatusGreen, Change: 0.5, CheckedAt: time.Unix(0, 0).UTC()}
	w := do(t, s, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got model.Signal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, model.StatusGreen, got.Status)
	assert.Equal(t, 3000.0, got.Price)
}

func TestHistory(t *testing.T) {
	src := &fakeSource{points: []model.PricePoint{{Price: 1}, {Price: 2}}}
	s := NewServer(zerolog.Nop(), ":0", src, device.DefaultSettings())
	w := do(t, s, "/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Count  int                `json:"count"`
		Points []model.PricePoint `json:"points"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 2.0, body.Points[1].Price)
}

func TestDevice(t *testing.T) {
	settings := device.DefaultSettings()
	settings.WiFiPassword = "hunter22"
	s := NewServer(zerolog.Nop(), ":0", &fakeSource{}, settings)

	w := do(t, s, "/device", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter22")
	assert.Contains(t, w.Body.String(), `"red_pin":25`)
	assert.Contains(t, w.Body.String(), `"wifi_ssid"`)

	w = do(t, s, "/device/header", "127.0.0.1:51000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `#define WIFI_PASSWORD "hunter22"`)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	w = do(t, s, "/device/header", "10.0.0.8:51000")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeviceHeader_IgnoresForwardedFor(t *testing.T) {
	settings := device.DefaultSettings()
	settings.WiFiPassword = "hunter22"
	s := NewServer(zerolog.Nop(), ":0", &fakeSource{}, settings)

	for _, h := range []string{"X-Forwarded-For", "X-Real-IP"} {
		req := httptest.NewRequest(http.MethodGet, "/device/header", nil)
		req.RemoteAddr = "203.0.113.7:4444"
		req.Header.Set(h, "127.0.0.1")
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code, h)
		assert.NotContains(t, w.Body.String(), "hunter22", h)
	}

	w := do(t, s, "/device/header", "[::1]:51000")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := NewServer(zerolog.Nop(), "127.0.0.1:0", &fakeSource{}, device.DefaultSettings())
	ctx, cancel := context.WithCancel(context.Background())
	done := s.Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
