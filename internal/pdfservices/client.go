package pdfservices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"cvextract-backend/internal/credentials"
	"cvextract-backend/internal/shared/telemetry"
)

const (
	defaultPollInterval    = 1 * time.Second
	defaultMaxPollAttempts = 30

	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// SleepFunc waits for d or until ctx is done. Injected so tests can tick
// through the poll loop without wall-clock delay.
type SleepFunc func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Config configures a protocol client.
type Config struct {
	BaseURL         string
	TokenURL        string
	HTTPClient      *http.Client
	PollInterval    time.Duration
	MaxPollAttempts int
	Sleep           SleepFunc
}

// Client drives the external extraction service's asynchronous protocol:
// asset reservation, binary upload, job creation and polling, and result
// download.
type Client struct {
	baseURL         string
	tokenURL        string
	httpClient      *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
	sleep           SleepFunc
}

// NewClient constructs a Client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		tokenURL:        cfg.TokenURL,
		httpClient:      cfg.HTTPClient,
		pollInterval:    cfg.PollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		sleep:           cfg.Sleep,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.maxPollAttempts <= 0 {
		c.maxPollAttempts = defaultMaxPollAttempts
	}
	if c.sleep == nil {
		c.sleep = defaultSleep
	}
	return c
}

type assetResponse struct {
	AssetID   string `json:"assetID"`
	UploadURI string `json:"uploadUri"`
}

type jobStatusResponse struct {
	Status  string `json:"status"`
	Content struct {
		DownloadURI string `json:"downloadUri"`
	} `json:"content"`
	Resource struct {
		DownloadURI string `json:"downloadUri"`
	} `json:"resource"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Extract runs the full protocol for one document and returns the raw
// result archive bytes, unparsed. Failures are *ProtocolError values.
func (c *Client) Extract(ctx context.Context, content []byte, fileName string, creds credentials.Credentials) ([]byte, error) {
	token, err := c.issueToken(ctx, creds)
	if err != nil {
		return nil, err
	}

	mediaType := mediaTypeFor(fileName)

	asset, err := c.reserveAsset(ctx, token, creds, mediaType)
	if err != nil {
		return nil, err
	}
	telemetry.Debug("pdfservices.asset_reserved", map[string]any{"asset_id": asset.AssetID})

	if err := c.uploadBinary(ctx, asset.UploadURI, content, mediaType); err != nil {
		return nil, err
	}

	location, err := c.createJob(ctx, token, creds, asset.AssetID)
	if err != nil {
		return nil, err
	}

	downloadURI, err := c.pollJob(ctx, token, creds, location)
	if err != nil {
		return nil, err
	}

	return c.downloadResult(ctx, downloadURI)
}

// issueToken obtains a bearer token via the client-credentials grant.
func (c *Client) issueToken(ctx context.Context, creds credentials.Credentials) (string, error) {
	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     c.tokenURL,
		Scopes:       []string{"openid", "AdobeID", "DCAPI"},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cc.Token(tokenCtx)
	if err != nil {
		return "", &ProtocolError{Kind: KindAuth, Phase: "token", Err: err}
	}
	return token.AccessToken, nil
}

func (c *Client) reserveAsset(ctx context.Context, token string, creds credentials.Credentials, mediaType string) (assetResponse, error) {
	payload, _ := json.Marshal(map[string]string{"mediaType": mediaType})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets", bytes.NewReader(payload))
	if err != nil {
		return assetResponse{}, &ProtocolError{Kind: KindTransport, Phase: "reserve", Err: err}
	}
	c.setAuthHeaders(req, token, creds)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return assetResponse{}, &ProtocolError{Kind: KindTransport, Phase: "reserve", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return assetResponse{}, &ProtocolError{Kind: KindTransport, Phase: "reserve", StatusCode: resp.StatusCode, Detail: truncate(body)}
	}

	var asset assetResponse
	if err := json.Unmarshal(body, &asset); err != nil {
		return assetResponse{}, &ProtocolError{Kind: KindTransport, Phase: "reserve", Err: fmt.Errorf("decode asset response: %w", err)}
	}
	if asset.AssetID == "" || asset.UploadURI == "" {
		return assetResponse{}, &ProtocolError{Kind: KindTransport, Phase: "reserve", Detail: "asset response missing assetID or uploadUri"}
	}
	return asset, nil
}

func (c *Client) uploadBinary(ctx context.Context, uploadURI string, content []byte, mediaType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURI, bytes.NewReader(content))
	if err != nil {
		return &ProtocolError{Kind: KindTransport, Phase: "upload", Err: err}
	}
	req.Header.Set("Content-Type", mediaType)
	req.ContentLength = int64(len(content))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProtocolError{Kind: KindTransport, Phase: "upload", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return &ProtocolError{Kind: KindTransport, Phase: "upload", StatusCode: resp.StatusCode, Detail: truncate(body)}
	}
	return nil
}

// createJob submits the text-only extraction request and returns the
// status-polling location from the response header; the response carries
// no body.
func (c *Client) createJob(ctx context.Context, token string, creds credentials.Credentials, assetID string) (string, error) {
	payload, _ := json.Marshal(map[string]any{
		"assetID":           assetID,
		"elementsToExtract": []string{"text"},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/operation/extractpdf", bytes.NewReader(payload))
	if err != nil {
		return "", &ProtocolError{Kind: KindJobCreate, Phase: "create", Err: err}
	}
	c.setAuthHeaders(req, token, creds)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProtocolError{Kind: KindJobCreate, Phase: "create", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", &ProtocolError{Kind: KindJobCreate, Phase: "create", StatusCode: resp.StatusCode, Detail: truncate(body)}
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return "", &ProtocolError{Kind: KindJobCreate, Phase: "create", Detail: "job response missing Location header"}
	}
	return location, nil
}

// pollJob polls the job location on a fixed interval until the service
// reports done or failed, or the attempt ceiling is exhausted.
func (c *Client) pollJob(ctx context.Context, token string, creds credentials.Credentials, location string) (string, error) {
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		status, err := c.fetchJobStatus(ctx, token, creds, location)
		if err != nil {
			return "", err
		}
		telemetry.Debug("pdfservices.poll", map[string]any{"attempt": attempt, "status": status.Status})

		switch strings.ToLower(strings.TrimSpace(status.Status)) {
		case "done":
			uri := status.Content.DownloadURI
			if uri == "" {
				uri = status.Resource.DownloadURI
			}
			if uri == "" {
				return "", &ProtocolError{Kind: KindJobFailed, Phase: "poll", Detail: "done status missing downloadUri"}
			}
			return uri, nil
		case "failed":
			detail := status.Error.Message
			if status.Error.Code != "" {
				detail = status.Error.Code + ": " + detail
			}
			return "", &ProtocolError{Kind: KindJobFailed, Phase: "poll", Detail: detail}
		}

		if attempt < c.maxPollAttempts {
			if err := c.sleep(ctx, c.pollInterval); err != nil {
				return "", &ProtocolError{Kind: KindPollTimeout, Phase: "poll", Err: err}
			}
		}
	}
	return "", &ProtocolError{
		Kind:   KindPollTimeout,
		Phase:  "poll",
		Detail: fmt.Sprintf("no terminal status after %d attempts", c.maxPollAttempts),
	}
}

func (c *Client) fetchJobStatus(ctx context.Context, token string, creds credentials.Credentials, location string) (jobStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return jobStatusResponse{}, &ProtocolError{Kind: KindTransport, Phase: "poll", Err: err}
	}
	c.setAuthHeaders(req, token, creds)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jobStatusResponse{}, &ProtocolError{Kind: KindTransport, Phase: "poll", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return jobStatusResponse{}, &ProtocolError{Kind: KindTransport, Phase: "poll", StatusCode: resp.StatusCode, Detail: truncate(body)}
	}

	var status jobStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return jobStatusResponse{}, &ProtocolError{Kind: KindTransport, Phase: "poll", Err: fmt.Errorf("decode status response: %w", err)}
	}
	return status, nil
}

// downloadResult fetches the raw result archive. The download URI is
// presigned, so no auth headers are attached.
func (c *Client) downloadResult(ctx context.Context, downloadURI string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURI, nil)
	if err != nil {
		return nil, &ProtocolError{Kind: KindTransport, Phase: "download", Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProtocolError{Kind: KindTransport, Phase: "download", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProtocolError{Kind: KindTransport, Phase: "download", StatusCode: resp.StatusCode, Detail: truncate(body)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) setAuthHeaders(req *http.Request, token string, creds credentials.Credentials) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("x-api-key", creds.ClientID)
	if creds.OrgID != "" {
		req.Header.Set("x-gw-ims-org-id", creds.OrgID)
	}
}

func mediaTypeFor(fileName string) string {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".docx":
		return mimeDOCX
	default:
		return mimePDF
	}
}

func truncate(body []byte) string {
	const limit = 512
	s := string(body)
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
