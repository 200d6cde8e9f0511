// ABOUTME: HTTP clients for the backend validation, upload, and approval endpoints.
// ABOUTME: Implements the RemoteValidator, RemoteUploader, and RemoteApprover ports.

package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/2389/studio/internal/approval"
	"github.com/2389/studio/internal/upload"
	"github.com/2389/studio/internal/validation"
)

// Client talks to a studio backend over HTTP. It satisfies the validator,
// uploader, and approver ports consumed by the coordinators.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Validate posts a configuration for schema validation.
func (c *Client) Validate(ctx context.Context, typeID string, config map[string]any) (validation.RemoteResult, error) {
	var out struct {
		IsValid  bool                `json:"isValid"`
		Errors   map[string][]string `json:"errors"`
		Warnings map[string][]string `json:"warnings"`
	}
	err := c.postJSON(ctx, "/api/widgets/"+typeID+"/validate",
		map[string]any{"configuration": config}, &out)
	if err != nil {
		return validation.RemoteResult{}, err
	}
	return validation.RemoteResult{IsValid: out.IsValid, Errors: out.Errors, Warnings: out.Warnings}, nil
}

// Upload sends file blobs as a multipart batch. A 409 response decodes into a
// TransportError carrying the needs-action entries, so duplicate conflicts
// surface through the error path with the same payload shape as the response
// path.
func (c *Client) Upload(ctx context.Context, files []upload.FileBlob, namespace string, decisions map[string]upload.Resolution) (*upload.Result, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	for _, f := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, f.Name))
		hdr.Set("Content-Type", f.MediaType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if len(decisions) > 0 {
		data, err := json.Marshal(decisions)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal decisions: %w", err)
		}
		if err := mw.WriteField("decisions", string(data)); err != nil {
			return nil, fmt.Errorf("failed to write decisions part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/media/"+namespace+"/upload", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &upload.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var result upload.Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, &upload.TransportError{Message: "malformed upload response: " + err.Error()}
		}
		return &result, nil

	case resp.StatusCode == http.StatusConflict:
		var conflict struct {
			Message     string             `json:"message"`
			NeedsAction []upload.Duplicate `json:"needsAction"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&conflict); err != nil {
			return nil, &upload.TransportError{Message: "malformed conflict response: " + err.Error()}
		}
		return nil, &upload.TransportError{Message: conflict.Message, NeedsAction: conflict.NeedsAction}

	default:
		return nil, &upload.TransportError{Message: readErrorMessage(resp)}
	}
}

// ApproveOne promotes a single pending file.
func (c *Client) ApproveOne(ctx context.Context, pendingID string, meta approval.AssetMeta) (approval.Asset, error) {
	var asset approval.Asset
	err := c.postJSON(ctx, "/api/media/pending/"+pendingID+"/approve", meta, &asset)
	return asset, err
}

// ApproveBulk promotes a batch of pending files.
func (c *Client) ApproveBulk(ctx context.Context, items []approval.BulkItem) ([]approval.Asset, error) {
	var out struct {
		Assets []approval.Asset `json:"assets"`
	}
	err := c.postJSON(ctx, "/api/media/pending/approve", map[string]any{"items": items}, &out)
	return out.Assets, err
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, readErrorMessage(resp))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// readErrorMessage pulls the message out of a standardized error body,
// falling back to the raw text.
func readErrorMessage(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		return envelope.Message
	}
	return strings.TrimSpace(string(raw))
}
