package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/commandcenter/commandcenter/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	// Should not panic.
	s.NotifyAlert(context.Background(), AlertInput{Vendor: config.VendorSolArk, Fingerprint: "solark:low_soc"})
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when token empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "", Channel: "C123"})
		assert.Nil(t, svc)
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		svc := NewService(ServiceConfig{Token: "xoxb-test", Channel: ""})
		assert.Nil(t, svc)
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(ServiceConfig{
			Token:        "xoxb-test",
			Channel:      "C123",
			DashboardURL: "https://example.com",
		})
		assert.NotNil(t, svc)
	})
}

func TestService_NotifyAlert_PostsWhenNoDuplicate(t *testing.T) {
	var posted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/conversations.history":
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "messages": []any{}})
		case "/chat.postMessage":
			posted = true
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1234.5678"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client, "https://dash.example.com")

	svc.NotifyAlert(context.Background(), AlertInput{
		Vendor:      config.VendorSolArk,
		Condition:   "low_soc",
		Message:     "SOC is 12%",
		Fingerprint: "solark:low_soc",
		Severity:    "critical",
	})

	require.True(t, posted, "expected chat.postMessage to be called")
}

func TestService_NotifyAlert_SkipsDuplicate(t *testing.T) {
	var posted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/conversations.history":
			json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"messages": []map[string]any{
					{"text": "solark:low_soc already posted", "ts": "1111.2222"},
				},
			})
		case "/chat.postMessage":
			posted = true
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1234.5678"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client, "https://dash.example.com")

	svc.NotifyAlert(context.Background(), AlertInput{
		Vendor:      config.VendorSolArk,
		Condition:   "low_soc",
		Message:     "SOC is 12%",
		Fingerprint: "solark:low_soc already posted",
		Severity:    "critical",
	})

	assert.False(t, posted, "should not repost a fingerprint already seen in the last 24h")
}

func TestService_NotifyAlert_FirstAlertOfDayStampsThreadMarker(t *testing.T) {
	var capturedBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/conversations.history":
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "messages": []any{}})
		case "/chat.postMessage":
			body, _ := io.ReadAll(r.Body)
			capturedBody = string(body)
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1111.0001"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client, "https://dash.example.com")

	svc.NotifyAlert(context.Background(), AlertInput{
		Vendor:      config.VendorSolArk,
		Condition:   "low_soc",
		Message:     "SOC is 12%",
		Fingerprint: "solark:low_soc:first-of-day",
		Severity:    "critical",
	})

	assert.Contains(t, capturedBody, dailyThreadMarker(time.Now()),
		"the first alert of the day should stamp the thread marker so later alerts can find it")
}

func TestService_NotifyAlert_ThreadsUnderTodaysRoot(t *testing.T) {
	marker := dailyThreadMarker(time.Now())
	var capturedBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/conversations.history":
			json.NewEncoder(w).Encode(map[string]any{
				"ok": true,
				"messages": []map[string]any{
					{"text": "_ref: " + marker + "_", "ts": "9999.0001"},
				},
			})
		case "/chat.postMessage":
			body, _ := io.ReadAll(r.Body)
			capturedBody = string(body)
			json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1234.5678"})
		default:
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	defer srv.Close()

	client := NewClientWithAPIURL("xoxb-test", "C123", srv.URL+"/")
	svc := NewServiceWithClient(client, "https://dash.example.com")

	svc.NotifyAlert(context.Background(), AlertInput{
		Vendor:      config.VendorSolArk,
		Condition:   "low_soc",
		Message:     "SOC is 12%",
		Fingerprint: "solark:low_soc:unique-for-threading-test",
		Severity:    "critical",
	})

	assert.Contains(t, capturedBody, "9999.0001", "alert should thread under today's existing root")
}
