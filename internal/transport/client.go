package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"reshare/pkg/types"
)

const maxErrorBody = 64 * 1024

var (
	// ErrNotFound is wrapped by errors for files the server does not know
	ErrNotFound = errors.New("not found")
	// ErrUnknownSize is wrapped when a download response has no Content-Length
	ErrUnknownSize = errors.New("unknown file size")
	// ErrMalformedResponse is wrapped when a response body has an unexpected shape
	ErrMalformedResponse = errors.New("malformed server response")
)

// RemoteError is a non-success response carrying the server's message
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return e.Message
}

// Client talks to a reshare server
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient creates a client for serverURL. A nil httpClient selects a client
// without timeouts, since transfers may be arbitrarily long.
func NewClient(serverURL string, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server URL: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{base: base, http: httpClient}, nil
}

// listURL returns the listing URL of ns
func (c *Client) listURL(ns types.Namespace) string {
	if ns.IsPublic() {
		return c.base.JoinPath("api", "list").String()
	}
	return c.base.JoinPath("api", "private", url.PathEscape(ns.Keyphrase())).String()
}

// DownloadURL returns the URL name is served from in ns
func (c *Client) DownloadURL(name string, ns types.Namespace) string {
	if ns.IsPublic() {
		return c.base.JoinPath("api", "download", url.PathEscape(name)).String()
	}
	return c.base.JoinPath("api", "private", url.PathEscape(ns.Keyphrase()), url.PathEscape(name)).String()
}

func (c *Client) uploadURL() string {
	return c.base.JoinPath("api", "upload").String()
}

// List returns the files of ns
func (c *Client) List(ctx context.Context, ns types.Namespace) ([]types.FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listURL(ns), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp, "")
	}

	var files []types.FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return files, nil
}

// Download is an open download response
type Download struct {
	Name   string
	Length uint64
	Body   io.ReadCloser
}

// Download requests name from ns. The caller must close the returned body.
func (c *Client) Download(ctx context.Context, name string, ns types.Namespace) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(name, ns), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s - %w", name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, responseError(resp, name)
	}

	if resp.ContentLength < 0 {
		resp.Body.Close()
		return nil, fmt.Errorf("%s - %w", name, ErrUnknownSize)
	}

	return &Download{
		Name:   name,
		Length: uint64(resp.ContentLength),
		Body:   resp.Body,
	}, nil
}

// responseError maps a non-success response to an error. A 404 for a named file
// reads "<name> not found"; anything else carries the server's message.
func responseError(resp *http.Response, name string) error {
	if resp.StatusCode == http.StatusNotFound && name != "" {
		return fmt.Errorf("%s %w", name, ErrNotFound)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &RemoteError{
		StatusCode: resp.StatusCode,
		Message:    remoteMessage(resp.Status, body),
	}
}

// remoteMessage extracts the most specific message from an error body
func remoteMessage(status string, body []byte) string {
	var errBody types.ErrorBody
	if json.Unmarshal(body, &errBody) == nil && errBody.ErrorMsg != "" {
		return errBody.ErrorMsg
	}

	var statuses []types.UploadStatus
	if json.Unmarshal(body, &statuses) == nil {
		for i := len(statuses) - 1; i >= 0; i-- {
			if statuses[i].Error != nil {
				return statuses[i].Error.ErrorMsg
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return status
}
