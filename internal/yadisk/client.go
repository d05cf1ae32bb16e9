package yadisk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"

	apperrors "github.com/alexjbarnes/disksync/internal/errors"
)

const baseURL = "https://cloud-api.yandex.net/v1/disk"

const (
	// httpTimeout bounds every API call. Uploads of large files go to a
	// separate storage host and get a longer budget.
	httpTimeout   = 30 * time.Second
	uploadTimeout = 10 * time.Minute

	// listLimit is the maximum number of entries requested from the
	// folder listing endpoint.
	listLimit = 1000
)

// TransientError wraps an error that is likely temporary (network,
// timeout, server-side 5xx) and safe to retry on a later cycle.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Client talks to the Yandex Disk REST API. All operations address
// objects inside a single cloud folder by their base name.
type Client struct {
	client *req.Client
	upload *req.Client
	folder string
}

// New creates a client for the given OAuth token and cloud folder.
// It validates the token against the API root and creates the folder
// if it does not exist yet. Both failures are construction-time fatal.
func New(ctx context.Context, token, folder string) (*Client, error) {
	httpClient := req.C().
		SetBaseURL(baseURL).
		SetTimeout(httpTimeout).
		SetCommonHeader("Authorization", "OAuth "+token).
		SetCommonHeader("Accept", "application/json")

	// File bodies go to a storage host the API hands back via an
	// absolute href, so the upload client carries no base URL and gets
	// a budget sized for large files rather than API round trips.
	uploadClient := req.C().SetTimeout(uploadTimeout)

	c := &Client{
		client: httpClient,
		upload: uploadClient,
		folder: folder,
	}

	if err := c.validateToken(ctx); err != nil {
		return nil, fmt.Errorf("validating token: %w", err)
	}

	if err := c.ensureFolder(ctx); err != nil {
		return nil, fmt.Errorf("ensuring cloud folder %q: %w", folder, err)
	}

	return c, nil
}

// validateToken issues a request against the disk root; a 401 means the
// token is invalid or expired.
func (c *Client) validateToken(ctx context.Context) error {
	resp, err := c.client.R().SetContext(ctx).Get("")
	return c.apiError(resp, err, "disk info")
}

// ensureFolder creates the cloud folder. A 409 means it already exists
// and is not an error.
func (c *Client) ensureFolder(ctx context.Context) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("path", c.folder).
		Put("/resources")
	if err == nil && resp.StatusCode == http.StatusConflict {
		return nil
	}

	return c.apiError(resp, err, "create folder")
}

// remotePath returns the full cloud path for a remote object name.
func (c *Client) remotePath(name string) string {
	return c.folder + "/" + name
}

// Upload stores the file at localPath under the cloud folder as name,
// overwriting any existing object. name is passed by the caller rather
// than derived from the path, so a normalized name and the on-disk
// spelling cannot drift apart. The API is two-step: request an upload
// href, then PUT the file body to it.
func (c *Client) Upload(ctx context.Context, localPath, name string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("path", c.remotePath(name)).
		SetQueryParam("overwrite", "true").
		Get("/resources/upload")
	if apiErr := c.apiError(resp, err, "request upload href"); apiErr != nil {
		return apiErr
	}

	href := gjson.GetBytes(resp.Bytes(), "href").Str
	if href == "" {
		return fmt.Errorf("request upload href: %w: no href in response", apperrors.ErrAPIResponse)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer file.Close()

	uploadResp, err := c.upload.R().
		SetContext(ctx).
		SetBody(file).
		SetContentType("application/octet-stream").
		Put(href)
	if apiErr := c.apiError(uploadResp, err, "upload body"); apiErr != nil {
		return apiErr
	}

	return nil
}

// Overwrite replaces the remote copy of localPath. The upload href is
// requested with overwrite=true either way, so the wire behavior is
// identical to Upload.
func (c *Client) Overwrite(ctx context.Context, localPath, name string) error {
	return c.Upload(ctx, localPath, name)
}

// Delete removes the remote object by name, permanently. Deleting
// an object that is already gone succeeds.
func (c *Client) Delete(ctx context.Context, name string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("path", c.remotePath(name)).
		SetQueryParam("permanently", "true").
		Delete("/resources")

	apiErr := c.apiError(resp, err, "delete")
	if errors.Is(apiErr, apperrors.ErrRemoteNotFound) {
		return nil
	}

	return apiErr
}

// List returns the files currently in the cloud folder, keyed by name.
// Folders inside the listing are skipped.
func (c *Client) List(ctx context.Context) (map[string]RemoteFile, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("path", c.folder).
		SetQueryParam("limit", fmt.Sprint(listLimit)).
		Get("/resources")
	if apiErr := c.apiError(resp, err, "list folder"); apiErr != nil {
		return nil, apiErr
	}

	files := make(map[string]RemoteFile)
	for _, item := range gjson.GetBytes(resp.Bytes(), "_embedded.items").Array() {
		if item.Get("type").Str != "file" {
			continue
		}

		name := item.Get("name").Str
		modified, _ := time.Parse(time.RFC3339, item.Get("modified").Str)
		files[name] = RemoteFile{
			Name:     name,
			Size:     item.Get("size").Int(),
			Modified: modified,
		}
	}

	return files, nil
}

// apiError maps a response to the shared error taxonomy: nil on
// success, sentinel-wrapped errors for auth and missing resources,
// TransientError for anything likely to clear up on its own.
func (c *Client) apiError(resp *req.Response, err error, op string) error {
	if err != nil {
		return &TransientError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	if !resp.IsErrorState() {
		return nil
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, apperrors.ErrInvalidToken)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, apperrors.ErrRemoteNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &TransientError{Err: fmt.Errorf("%s: %w: %s", op, apperrors.ErrAPIRequest, apiMessage(resp))}
	default:
		return fmt.Errorf("%s: %w: HTTP %d: %s", op, apperrors.ErrAPIRequest, resp.StatusCode, apiMessage(resp))
	}
}

// apiMessage extracts the human-readable message from an API error
// body, falling back to the error code.
func apiMessage(resp *req.Response) string {
	body := resp.Bytes()
	if msg := gjson.GetBytes(body, "message").Str; msg != "" {
		return msg
	}
	if code := gjson.GetBytes(body, "error").Str; code != "" {
		return code
	}
	return "no error detail"
}
