package httpclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRunHTTPcall(t *testing.T) {
	t.Run("posts payload with auth header", func(t *testing.T) {
		var gotAuth string
		var gotPayload map[string]interface{}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("auth")
			json.NewDecoder(r.Body).Decode(&gotPayload)
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
		}))
		defer srv.Close()

		client := ClientConfig{RootURL: srv.URL, AuthKey: "secret", Timeout: 5 * time.Second}
		result, err := client.RunHTTPcall("/endpoint", map[string]string{"query": "SELECT 1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotAuth != "secret" {
			t.Errorf("auth header not set, got %q", gotAuth)
		}
		if gotPayload["query"] != "SELECT 1" {
			t.Errorf("payload not forwarded: %v", gotPayload)
		}
		if result["status"] != "ok" {
			t.Errorf("response not decoded: %v", result)
		}
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		client := ClientConfig{RootURL: srv.URL, Timeout: 5 * time.Second}
		if _, err := client.RunHTTPcall("", nil); err == nil {
			t.Error("expected error for status 403")
		}
	})

	t.Run("decodes row sets into a slice", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]interface{}{{"UserID": "P001"}})
		}))
		defer srv.Close()

		client := ClientConfig{RootURL: srv.URL, Timeout: 5 * time.Second}
		var rows []map[string]interface{}
		if err := client.RunHTTPcallInto("", nil, &rows); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rows) != 1 || rows[0]["UserID"] != "P001" {
			t.Errorf("unexpected rows: %v", rows)
		}
	})
}
