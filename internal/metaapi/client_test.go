package metaapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadsignal_backend/platform/apperr"
)

type metaConfig struct {
	baseURL string
}

func (c metaConfig) GetMetaAppID() string              { return "app-1" }
func (c metaConfig) GetMetaAppSecret() string          { return "secret-1" }
func (c metaConfig) GetMetaVerifyToken() string        { return "verify-1" }
func (c metaConfig) GetMetaGraphBaseURL() string       { return c.baseURL }
func (c metaConfig) GetMetaHTTPTimeout() time.Duration { return 2 * time.Second }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(metaConfig{baseURL: srv.URL})
}

func TestExchangeCodeSendsCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/access_token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("client_id") != "app-1" || q.Get("client_secret") != "secret-1" {
			t.Errorf("credentials missing: %v", q)
		}
		if q.Get("code") != "auth-code" || q.Get("redirect_uri") != "https://example.com/cb" {
			t.Errorf("code params: %v", q)
		}
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "short-token", ExpiresIn: 3600})
	})

	resp, err := client.ExchangeCode(context.Background(), "auth-code", "https://example.com/cb")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if resp.AccessToken != "short-token" {
		t.Fatalf("token = %q", resp.AccessToken)
	}
}

func TestGetLeadDataDecodesFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lg-123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "page-token" {
			t.Errorf("access_token = %q", r.URL.Query().Get("access_token"))
		}
		_, _ = w.Write([]byte(`{
			"id": "lg-123",
			"created_time": "2026-03-01T10:00:00+0000",
			"ad_id": "ad-9",
			"form_id": "form-7",
			"field_data": [
				{"name": "full_name", "values": ["Jane Visser"]},
				{"name": "email", "values": ["jane@example.com"]}
			]
		}`))
	})

	data, err := client.GetLeadData(context.Background(), "lg-123", "page-token")
	if err != nil {
		t.Fatalf("get lead data: %v", err)
	}
	if data.FormID != "form-7" || data.AdID != "ad-9" {
		t.Fatalf("data = %+v", data)
	}
	if len(data.FieldData) != 2 || data.FieldData[0].Values[0] != "Jane Visser" {
		t.Fatalf("field data = %+v", data.FieldData)
	}
}

func TestSendConversionEventPostsSingleEvent(t *testing.T) {
	var captured conversionRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pixel-1/events" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("access_token") != "conn-token" {
			t.Errorf("access_token = %q", r.URL.Query().Get("access_token"))
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ConversionResponse{EventsReceived: 1, FBTraceID: "trace-1"})
	})

	event := ConversionEvent{
		EventName:    "Lead",
		EventTime:    time.Now().Unix(),
		ActionSource: "system_generated",
	}
	resp, err := client.SendConversionEvent(context.Background(), "pixel-1", "conn-token", event)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.EventsReceived != 1 || resp.FBTraceID != "trace-1" {
		t.Fatalf("resp = %+v", resp)
	}
	if len(captured.Data) != 1 || captured.Data[0].EventName != "Lead" {
		t.Fatalf("request body = %+v", captured)
	}
}

func TestGraphErrorsSurfaceAsUpstream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid OAuth access token", "code": 190}}`))
	})

	_, err := client.GetFormName(context.Background(), "form-7", "bad-token")
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("err = %v, want upstream", err)
	}
}

func TestUnreachableHostIsUpstream(t *testing.T) {
	client := NewClient(metaConfig{baseURL: "http://127.0.0.1:1"})

	_, err := client.ListPages(context.Background(), "user-token")
	if !apperr.Is(err, apperr.KindUpstream) {
		t.Fatalf("err = %v, want upstream", err)
	}
}
