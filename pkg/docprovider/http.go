package docprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPClient is a generic JSON-over-HTTP Provider implementation. No
// document-store SDK appears anywhere in the example pack, so —
// following the same pack-grounded choice as pkg/embedding and
// pkg/websearch — this talks directly over net/http against a
// configurable endpoint speaking a plain list/fetch shape.
type HTTPClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPClient constructs an HTTPClient.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, APIKey: apiKey, HTTPClient: http.DefaultClient}
}

func (c *HTTPClient) authHeader(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}

func (c *HTTPClient) ListDocuments(ctx context.Context, rootFolderID string, contextOnly bool) ([]DocumentMeta, error) {
	q := url.Values{}
	q.Set("root_folder_id", rootFolderID)
	if contextOnly {
		q.Set("context_only", "true")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/documents?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	c.authHeader(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list documents request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list documents returned status %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Documents []struct {
			ExternalID string `json:"external_id"`
			Title      string `json:"title"`
			FolderPath string `json:"folder_path"`
			MimeKind   string `json:"mime_kind"`
			ModifiedAt string `json:"modified_at"`
		} `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode list documents response: %w", err)
	}

	metas := make([]DocumentMeta, 0, len(out.Documents))
	for _, d := range out.Documents {
		mt, err := parseModifiedAt(d.ModifiedAt)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ExternalID, err)
		}
		metas = append(metas, DocumentMeta{
			ExternalID: d.ExternalID,
			Title:      d.Title,
			FolderPath: d.FolderPath,
			MimeKind:   MimeKind(d.MimeKind),
			ModifiedAt: mt,
		})
	}
	return metas, nil
}

func (c *HTTPClient) FetchText(ctx context.Context, externalID string, kind MimeKind) (string, error) {
	q := url.Values{}
	q.Set("mime_kind", string(kind))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/documents/"+url.PathEscape(externalID)+"/text?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	c.authHeader(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch document text request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, externalID)
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("fetch document text returned status %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode fetch document text response: %w", err)
	}
	return out.Text, nil
}

var _ Provider = (*HTTPClient)(nil)

func parseModifiedAt(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}
