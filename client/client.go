// Package client is a typed HTTP client for the miniplm server API.
//
// [Client] implements [miniplm/hybridstorage.Remote] for product tree persistence and the
// upload side used by the workbench. Server responses are unwrapped from the
// [miniplm/models.APIResponse] envelope. Transport failures wrap
// [miniplm/hybridstorage.ErrRemoteUnavailable]; non-2xx answers are returned as *StatusError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"miniplm/hybridstorage"
	"miniplm/models"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error: status=%d, body=%s", e.StatusCode, e.Body)
}

// Client provides typed access to the miniplm REST API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for baseURL ("http://host:port", no trailing slash needed).
// A zero timeout leaves requests unbounded; pass a context deadline instead.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// doRequest performs an HTTP request with a JSON body.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return c.send(req)
}

func (c *Client) send(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hybridstorage.ErrRemoteUnavailable, err)
	}
	return resp, nil
}

// decodeResponse unwraps the APIResponse envelope into target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Status == "error" {
		return fmt.Errorf("API error: %s: %s", envelope.Message, envelope.Error)
	}
	if target != nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, target); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// Health checks that the server and its database respond.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Product trees

// SaveProducts replaces the server's product trees. Inline payloads are expected to be
// stripped already; the server drops any that remain.
func (c *Client) SaveProducts(ctx context.Context, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/products/save", products)
	if err != nil {
		return err
	}
	var result models.SaveProductsResult
	return decodeResponse(resp, &result)
}

// LoadProducts fetches the stored product trees. An empty slice means nothing is stored.
func (c *Client) LoadProducts(ctx context.Context) ([]models.Product, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/products/", nil)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := decodeResponse(resp, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Uploads

// RevisionUpload describes the file a new revision belongs to.
type RevisionUpload struct {
	OriginalName   string
	IsChild        bool
	ParentID       string
	ParentRevision int
}

// UploadFile uploads a top-level file.
func (c *Client) UploadFile(ctx context.Context, name string, content io.Reader) (models.FileUploadResult, error) {
	return c.upload(ctx, "/api/files/", name, content, nil)
}

// UploadChildFile uploads a child attached to parentID at parentRevision.
func (c *Client) UploadChildFile(ctx context.Context, name string, content io.Reader, parentID string, parentRevision int) (models.FileUploadResult, error) {
	fields := map[string]string{"parent_id": parentID}
	if parentRevision > 0 {
		fields["parent_revision"] = strconv.Itoa(parentRevision)
	}
	return c.upload(ctx, "/api/files/child/", name, content, fields)
}

// UploadRevision uploads a new revision of an existing file.
func (c *Client) UploadRevision(ctx context.Context, name string, content io.Reader, rev RevisionUpload) (models.FileUploadResult, error) {
	original := rev.OriginalName
	if original == "" {
		original = name
	}
	fields := map[string]string{
		"original_name": original,
		"is_child_file": strconv.FormatBool(rev.IsChild),
	}
	if rev.IsChild {
		fields["parent_id"] = rev.ParentID
		if rev.ParentRevision > 0 {
			fields["parent_revision"] = strconv.Itoa(rev.ParentRevision)
		}
	}
	return c.upload(ctx, "/api/files/revision/", name, content, fields)
}

func (c *Client) upload(ctx context.Context, path, name string, content io.Reader, fields map[string]string) (models.FileUploadResult, error) {
	if name == "" {
		return models.FileUploadResult{}, errors.New("file name is required")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return models.FileUploadResult{}, err
		}
	}
	fw, err := mw.CreateFormFile("uploaded_file", name)
	if err != nil {
		return models.FileUploadResult{}, err
	}
	if content != nil {
		if _, err := io.Copy(fw, content); err != nil {
			return models.FileUploadResult{}, fmt.Errorf("read upload content: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return models.FileUploadResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return models.FileUploadResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(req)
	if err != nil {
		return models.FileUploadResult{}, err
	}
	var result models.FileUploadResult
	if err := decodeResponse(resp, &result); err != nil {
		return models.FileUploadResult{}, err
	}
	return result, nil
}

// Media

// MediaURL returns the absolute media URL for a file name.
func (c *Client) MediaURL(name string) string {
	return c.baseURL + "/media/" + url.PathEscape(name)
}

// AssetURL is the media URL of one specific upload.
func (c *Client) AssetURL(name, id string) string {
	return c.MediaURL(name) + "?id=" + url.QueryEscape(id)
}

// ResolveURL makes a server-relative path such as "/media/x.stl" absolute.
func (c *Client) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "/") {
		return c.baseURL + ref
	}
	return ref
}

// MediaLink asks the server for a signed media URL. An empty id links the latest upload of name.
func (c *Client) MediaLink(ctx context.Context, name, id string) (models.MediaLink, error) {
	path := "/api/media/link?name=" + url.QueryEscape(name)
	if id != "" {
		path += "&id=" + url.QueryEscape(id)
	}
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return models.MediaLink{}, err
	}
	var link models.MediaLink
	if err := decodeResponse(resp, &link); err != nil {
		return models.MediaLink{}, err
	}
	link.URL = c.ResolveURL(link.URL)
	return link, nil
}

// FetchURL downloads an absolute or server-relative URL, e.g. a signed media link.
func (c *Client) FetchURL(ctx context.Context, ref string) ([]byte, string, error) {
	return c.fetch(ctx, c.ResolveURL(ref))
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", hybridstorage.ErrRemoteUnavailable, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
