package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"reshare/pkg/types"
)

const (
	keyphraseField = "keyphrase"
	fileField      = "file"
)

type uploadResult struct {
	status types.UploadStatus
	err    error
}

// Upload is a single-file multipart upload whose body is written chunk by chunk
// while the request is in flight
type Upload struct {
	name string
	ns   types.Namespace

	pw      *io.PipeWriter
	mw      *multipart.Writer
	part    io.Writer
	started bool
	result  chan uploadResult
}

// StartUpload sends the upload request for one file in ns. Chunks are passed
// with Write and the server's verdict is read with Finish.
func (c *Client) StartUpload(ctx context.Context, name string, ns types.Namespace) (*Upload, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL(), pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	u := &Upload{
		name:   name,
		ns:     ns,
		pw:     pw,
		mw:     mw,
		result: make(chan uploadResult, 1),
	}

	go func() {
		status, err := c.doUpload(req, name)
		// Unblocks pending writes when the server answered early
		pr.CloseWithError(io.ErrClosedPipe)
		u.result <- uploadResult{status: status, err: err}
	}()

	return u, nil
}

func (c *Client) doUpload(req *http.Request, name string) (types.UploadStatus, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return types.UploadStatus{}, fmt.Errorf("%s - %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.UploadStatus{}, responseError(resp, "")
	}

	var statuses []types.UploadStatus
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return types.UploadStatus{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(statuses) != 1 || !statuses[0].Valid() {
		return types.UploadStatus{}, fmt.Errorf("%w: expected one upload status, got %d", ErrMalformedResponse, len(statuses))
	}

	return statuses[0], nil
}

// start writes the form fields preceding the file content
func (u *Upload) start() error {
	if u.started {
		return nil
	}
	u.started = true

	if !u.ns.IsPublic() {
		if err := u.mw.WriteField(keyphraseField, u.ns.Keyphrase()); err != nil {
			return fmt.Errorf("failed to write keyphrase: %w", err)
		}
	}

	part, err := u.mw.CreateFormFile(fileField, u.name)
	if err != nil {
		return fmt.Errorf("failed to create file part: %w", err)
	}
	u.part = part
	return nil
}

// Write sends one chunk of the file
func (u *Upload) Write(chunk []byte) (int, error) {
	if err := u.start(); err != nil {
		return 0, err
	}
	return u.part.Write(chunk)
}

// Finish completes the body and waits for the server's status of the file
func (u *Upload) Finish(ctx context.Context) (types.UploadStatus, error) {
	if err := u.start(); err != nil {
		u.pw.CloseWithError(err)
		return types.UploadStatus{}, err
	}
	if err := u.mw.Close(); err != nil {
		u.pw.CloseWithError(err)
	} else {
		u.pw.Close()
	}

	select {
	case res := <-u.result:
		return res.status, res.err
	case <-ctx.Done():
		return types.UploadStatus{}, ctx.Err()
	}
}

// Abort fails the request body so the server discards the partial file
func (u *Upload) Abort(cause error) {
	if cause == nil {
		cause = io.ErrUnexpectedEOF
	}
	u.pw.CloseWithError(cause)
}
