package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ClientConfig is a small JSON POST client for the external services the
// scheduler talks to (chatbot platform endpoints).
type ClientConfig struct {
	RootURL string
	AuthKey string
	Timeout time.Duration
}

// RunHTTPcall posts the payload and decodes the response into a generic map.
func (cConfig ClientConfig) RunHTTPcall(pathname string, payload interface{}) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := cConfig.RunHTTPcallInto(pathname, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RunHTTPcallInto posts the payload and decodes the response body into
// target, which may be a slice for row-set responses.
func (cConfig ClientConfig) RunHTTPcallInto(pathname string, payload interface{}, target interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	client := &http.Client{
		Timeout: cConfig.Timeout,
	}

	url := cConfig.RootURL + pathname
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		slog.Error("unexpected error in preparing http request", slog.String("error", err.Error()))
		return err
	}
	if cConfig.AuthKey != "" {
		req.Header.Set("auth", cConfig.AuthKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		slog.Error("error during http call", slog.String("url", url), slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}
	if target == nil {
		return nil
	}
	return json.Unmarshal(body, target)
}
