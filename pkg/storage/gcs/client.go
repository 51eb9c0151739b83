package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"github.com/angelmondragon/folio-backend/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

const (
	defaultAPIBase = "https://storage.googleapis.com"
	tokenEndpoint  = "https://oauth2.googleapis.com/token"
	scope          = "https://www.googleapis.com/auth/devstorage.read_write"
	pingTimeout    = 5 * time.Second
	metadataToken  = "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token"
)

// ErrNotConfigured is returned by every call on a nil or partially built client.
var ErrNotConfigured = errors.New("gcs client not initialized")

// Client talks to the Cloud Storage JSON API for a single bucket.
type Client struct {
	httpClient    *http.Client
	bucket        string
	publicBaseURL string
	apiBase       string
	tokens        oauth2.TokenSource
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Object describes an uploaded object.
type Object struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	MediaLink   string `json:"mediaLink"`
}

// APIError is a non-2xx response from the storage API.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gcs %s failed: %d", e.Op, e.Status)
	}
	return fmt.Sprintf("gcs %s failed: %d: %s", e.Op, e.Status, e.Body)
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}

	var (
		tokens oauth2.TokenSource
		err    error
	)
	switch {
	case gcp.CredentialsJSON != "":
		tokens, err = serviceAccountTokenSource(ctx, httpClient, []byte(gcp.CredentialsJSON))
	case gcp.ApplicationCredentials != "":
		raw, readErr := os.ReadFile(gcp.ApplicationCredentials)
		if readErr != nil {
			return nil, fmt.Errorf("reading credentials file: %w", readErr)
		}
		tokens, err = serviceAccountTokenSource(ctx, httpClient, raw)
	default:
		tokens = oauth2.ReuseTokenSource(nil, &metadataTokenSource{client: httpClient})
	}
	if err != nil {
		return nil, err
	}

	client := &Client{
		httpClient:    httpClient,
		bucket:        cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		apiBase:       defaultAPIBase,
		tokens:        tokens,
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	}

	return client, nil
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// PublicURL returns the anonymous read URL for object.
func (c *Client) PublicURL(object string) string {
	base := c.publicBaseURL
	if base == "" {
		base = defaultAPIBase
	}
	return fmt.Sprintf("%s/%s/%s", base, c.bucket, escapeObjectPath(object))
}

// Ping checks that the bucket is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1", c.apiBase, url.PathEscape(c.bucket))
	resp, err := c.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return apiError("ping", resp)
	}
	return nil
}

// UploadObject streams body into object using a simple media upload.
func (c *Client) UploadObject(ctx context.Context, object, contentType string, body io.Reader) (*Object, error) {
	if c == nil || c.tokens == nil {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(object) == "" {
		return nil, errors.New("object name is required")
	}

	q := url.Values{}
	q.Set("uploadType", "media")
	q.Set("name", object)
	u := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?%s", c.apiBase, url.PathEscape(c.bucket), q.Encode())

	resp, err := c.do(ctx, http.MethodPost, u, body, contentType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("upload", resp)
	}

	var obj Object
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &obj, nil
}

// DeleteObject removes object. A missing object is not an error.
func (c *Client) DeleteObject(ctx context.Context, object string) error {
	if c == nil || c.tokens == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(object) == "" {
		return errors.New("object name is required")
	}

	u := fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.apiBase, url.PathEscape(c.bucket), url.PathEscape(object))
	resp, err := c.do(ctx, http.MethodDelete, u, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return apiError("delete", resp)
	}
}

func (c *Client) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("gcs token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.httpClient.Do(req)
}

func apiError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &APIError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

func escapeObjectPath(object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func serviceAccountTokenSource(ctx context.Context, httpClient *http.Client, raw []byte) (oauth2.TokenSource, error) {
	var creds struct {
		ClientEmail  string `json:"client_email"`
		PrivateKey   string `json:"private_key"`
		PrivateKeyID string `json:"private_key_id"`
		TokenURI     string `json:"token_uri"`
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, fmt.Errorf("parsing service account credentials: %w", err)
	}
	if creds.ClientEmail == "" || creds.PrivateKey == "" {
		return nil, errors.New("invalid service account credentials")
	}
	tokenURI := creds.TokenURI
	if tokenURI == "" {
		tokenURI = tokenEndpoint
	}

	cfg := &jwt.Config{
		Email:        creds.ClientEmail,
		PrivateKey:   []byte(creds.PrivateKey),
		PrivateKeyID: creds.PrivateKeyID,
		TokenURL:     tokenURI,
		Scopes:       []string{scope},
	}
	ctx = context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, httpClient)
	return cfg.TokenSource(ctx), nil
}

// metadataTokenSource fetches tokens from the GCE metadata server.
type metadataTokenSource struct {
	client *http.Client
}

func (m *metadataTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataToken, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Metadata-Flavor", "Google")
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata token request returned %s", resp.Status)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		Expiry:      time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}
