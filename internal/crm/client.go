package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kbwebsolutions/datasender/pkg/config"
	"github.com/kbwebsolutions/datasender/pkg/enums"
	pkgerrors "github.com/kbwebsolutions/datasender/pkg/errors"
	"github.com/kbwebsolutions/datasender/pkg/logger"
)

// Client is the remote CRM dispatch collaborator. It authenticates with an
// OAuth2 password grant against the CRM's token endpoint, caches the access
// token until expiry, and executes the actual create/update calls. It never
// retries; delivery policy belongs to the caller.
type Client struct {
	cfg  config.CRMConfig
	http *http.Client
	logg *logger.Logger

	mu          sync.Mutex
	accessToken string
	instanceURL string
	expiresAt   time.Time
}

func NewClient(cfg config.CRMConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("crm base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		logg: logg,
	}, nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	InstanceURL string `json:"instance_url"`
	TokenType   string `json:"token_type"`
}

// tokenLifetime is conservative: the CRM does not return expires_in for the
// password grant, so the token is refreshed on a fixed schedule.
const tokenLifetime = 30 * time.Minute

func (c *Client) token(ctx context.Context) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.expiresAt) {
		return c.accessToken, c.instanceURL, nil
	}

	if strings.TrimSpace(c.cfg.TokenURL) == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeDependency, "crm token url not configured")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch access token")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", "", pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode token response")
	}
	if token.AccessToken == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeDependency, "token endpoint returned no access token")
	}

	c.accessToken = token.AccessToken
	c.instanceURL = strings.TrimSuffix(token.InstanceURL, "/")
	c.expiresAt = time.Now().Add(tokenLifetime)
	return c.accessToken, c.instanceURL, nil
}

// rebase retargets an endpoint onto the instance host announced by the token
// response. Endpoints outside the configured base are left untouched.
func (c *Client) rebase(endpoint, instance string) string {
	if instance == "" {
		return endpoint
	}
	base := strings.TrimSuffix(c.cfg.BaseURL, "/")
	if instance == base || !strings.HasPrefix(endpoint, base) {
		return endpoint
	}
	return instance + strings.TrimPrefix(endpoint, base)
}

// Call executes one dispatch against the fully built endpoint. The logLine
// is the human-readable summary attached to every attempt for support
// diagnosis.
func (c *Client) Call(ctx context.Context, endpoint string, method enums.DispatchMethod, payload any, logLine string) error {
	if !method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported dispatch method %q", method))
	}

	token, instance, err := c.token(ctx)
	if err != nil {
		return err
	}
	endpoint = c.rebase(endpoint, instance)

	body, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode dispatch payload")
	}

	req, err := http.NewRequestWithContext(ctx, string(method), endpoint, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build dispatch request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	if c.logg != nil {
		logCtx := c.logg.WithFields(ctx, map[string]any{
			"endpoint": endpoint,
			"method":   string(method),
		})
		c.logg.Info(logCtx, logLine)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dispatch call")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("remote rejected dispatch with %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	return nil
}
