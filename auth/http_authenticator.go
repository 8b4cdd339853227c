package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/go-clinic-client/internal/config"
	"github.com/jrsteele09/go-clinic-client/pipeline"
)

const (
	opLogin    = "login"
	opRegister = "register"
	opLogout   = "logout"
	opRefresh  = "refresh"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 16 << 10

var _ Authenticator = (*HTTPAuthenticator)(nil)

// HTTPAuthenticator calls the clinic REST auth endpoints. Its requests are
// tagged with their pipeline kind, so a 401 from login or refresh is never
// mistaken for an expired session by the transport they travel through.
type HTTPAuthenticator struct {
	client *http.Client
	cfg    config.APIConfig
}

// NewHTTPAuthenticator uses client for every call. The client must carry a
// cookie jar for Refresh to present the backend's refresh cookie.
func NewHTTPAuthenticator(cfg config.APIConfig, client *http.Client) *HTTPAuthenticator {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPAuthenticator{client: client, cfg: cfg}
}

func (a *HTTPAuthenticator) Login(ctx context.Context, creds Credentials) (*Result, error) {
	return a.authenticate(ctx, opLogin, pipeline.KindLogin, a.cfg.GetLoginPath(), creds)
}

func (a *HTTPAuthenticator) Register(ctx context.Context, profile Profile) (*Result, error) {
	return a.authenticate(ctx, opRegister, pipeline.KindRegister, a.cfg.GetRegisterPath(), profile)
}

func (a *HTTPAuthenticator) Logout(ctx context.Context) error {
	resp, err := a.post(ctx, opLogout, pipeline.KindLogout, a.cfg.GetLogoutPath(), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (a *HTTPAuthenticator) Refresh(ctx context.Context) (string, error) {
	resp, err := a.post(ctx, opRefresh, pipeline.KindRefresh, a.cfg.GetRefreshPath(), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("refresh: decode response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("refresh: response has no access token")
	}
	return body.AccessToken, nil
}

func (a *HTTPAuthenticator) authenticate(ctx context.Context, op string, kind pipeline.RequestKind, path string, payload any) (*Result, error) {
	resp, err := a.post(ctx, op, kind, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if result.AccessToken == "" || result.User == nil || result.User.ID == "" {
		return nil, fmt.Errorf("%s: incomplete session in response", op)
	}
	return &result, nil
}

// post sends payload as JSON and returns the response only for 2xx statuses.
func (a *HTTPAuthenticator) post(ctx context.Context, op string, kind pipeline.RequestKind, path string, payload any) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(pipeline.WithKind(ctx, kind), http.MethodPost, a.cfg.GetBaseURL()+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	return nil, &ResponseError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: errorMessage(resp.Body),
		Kind:    classify(op, resp.StatusCode),
	}
}

// errorMessage reads {"error": "..."} bodies, falling back to raw text.
func errorMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return string(bytes.TrimSpace(data))
}
