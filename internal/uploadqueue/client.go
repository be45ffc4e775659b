package uploadqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"guideai/internal/guideerr"
)

// apiClient talks to the server's agent-sessions endpoints, per spec
// §4.7 and §4.8's interface descriptions.
type apiClient struct {
	httpClient *http.Client
	serverURL  string
	apiKey     string
}

func newAPIClient(serverURL, apiKey string) *apiClient {
	return &apiClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		serverURL:  serverURL,
		apiKey:     apiKey,
	}
}

// CheckHash calls GET /api/agent-sessions/check-hash and reports
// whether the server still needs the session's content.
func (c *apiClient) CheckHash(ctx context.Context, sessionID, fileHash string) (bool, error) {
	u := fmt.Sprintf("%s/api/agent-sessions/check-hash?sessionId=%s&fileHash=%s",
		c.serverURL, url.QueryEscape(sessionID), url.QueryEscape(fileHash))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, guideerr.Wrap(guideerr.KindUpload, "build check-hash request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, guideerr.Wrap(guideerr.KindUpload, "check-hash request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, statusError("check-hash", resp)
	}

	var parsed struct {
		NeedsUpload bool `json:"needsUpload"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, guideerr.Wrap(guideerr.KindJSON, "parse check-hash response", err)
	}
	return parsed.NeedsUpload, nil
}

// UploadV2 posts the built payload to /api/agent-sessions/upload-v2.
func (c *apiClient) UploadV2(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return guideerr.Wrap(guideerr.KindJSON, "marshal upload payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serverURL+"/api/agent-sessions/upload-v2", bytes.NewReader(body))
	if err != nil {
		return guideerr.Wrap(guideerr.KindUpload, "build upload request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return guideerr.Wrap(guideerr.KindUpload, "upload request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("upload-v2", resp)
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return guideerr.New(guideerr.KindUpload,
		fmt.Sprintf("%s failed with status %d: %s", op, resp.StatusCode, string(text)))
}
