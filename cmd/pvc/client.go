package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

// apiClient is a thin JSON/HTTP client over one pvcd's HTTP surface.
// The CLI never talks to ZooKeeper, libvirt, or NATS directly — every
// subcommand goes through this client, the way an external operator
// or automation tool would.
type apiClient struct {
	addr   string
	apiKey string
	http   *http.Client
}

func newAPIClient(cmd *cobra.Command) *apiClient {
	addr, _ := cmd.Flags().GetString("api-addr")
	key, _ := cmd.Flags().GetString("api-key")
	return &apiClient{
		addr:   addr,
		apiKey: key,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

// do issues method against path, encoding body (if non-nil) as the
// request JSON and decoding the response JSON into out (if non-nil).
// A non-2xx response is surfaced as an error carrying the server's
// {"error": "..."} message when present.
func (c *apiClient) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, c.addr+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling pvcd at %s: %w", c.addr, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("pvcd: %s", errResp.Error)
		}
		return fmt.Errorf("pvcd: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *apiClient) get(path string, out any) error          { return c.do(http.MethodGet, path, nil, out) }
func (c *apiClient) post(path string, body, out any) error   { return c.do(http.MethodPost, path, body, out) }
func (c *apiClient) put(path string, body, out any) error    { return c.do(http.MethodPut, path, body, out) }
func (c *apiClient) delete(path string) error                { return c.do(http.MethodDelete, path, nil, nil) }
