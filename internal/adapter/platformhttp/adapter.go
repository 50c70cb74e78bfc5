// Package platformhttp implements the chat platform adapter over its REST
// API. Transient failures are retried at the transport layer; the adapter
// itself only translates status codes into the sentinel errors the core
// understands.
package platformhttp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"warden/internal/verification/models"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

// Adapter talks to the platform's HTTP API.
type Adapter struct {
	client  *http.Client
	baseURL string
	token   string
	roleID  string
	logger  *slog.Logger
}

type Option func(*Adapter)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// WithHTTPClient replaces the retrying default, used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) { a.client = client }
}

func New(baseURL, token, roleID string, opts ...Option) *Adapter {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	a := &Adapter{
		client: &http.Client{
			Transport: &retryablehttp.RoundTripper{Client: rc},
			Timeout:   15 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		roleID:  roleID,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GrantRole assigns the configured verified role to a subject.
func (a *Adapter) GrantRole(ctx context.Context, subjectID, realmID string) error {
	if a.roleID == "" {
		return sentinel.ErrRoleMissing
	}

	url := fmt.Sprintf("%s/realms/%s/members/%s/roles/%s", a.baseURL, realmID, subjectID, a.roleID)
	status, err := a.do(ctx, http.MethodPut, url)
	if err != nil {
		return fmt.Errorf("granting role: %w", err)
	}

	switch {
	case status == http.StatusOK || status == http.StatusNoContent:
		return nil
	case status == http.StatusForbidden:
		return sentinel.ErrForbidden
	case status == http.StatusNotFound:
		return sentinel.ErrRoleMissing
	default:
		return fmt.Errorf("granting role: unexpected status %d: %w", status, sentinel.ErrUnavailable)
	}
}

// MessageStillExists checks whether the message hosting an affordance is
// still present on the platform.
func (a *Adapter) MessageStillExists(ctx context.Context, messageRef, channelRef string) (bool, error) {
	url := fmt.Sprintf("%s/channels/%s/messages/%s", a.baseURL, channelRef, messageRef)
	status, err := a.do(ctx, http.MethodGet, url)
	if err != nil {
		return false, fmt.Errorf("checking message: %w", err)
	}

	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("checking message: unexpected status %d: %w", status, sentinel.ErrUnavailable)
	}
}

// RearmAffordance re-attaches click handling to a persisted verify button.
func (a *Adapter) RearmAffordance(ctx context.Context, affordance models.PendingAffordance) error {
	url := fmt.Sprintf("%s/channels/%s/messages/%s/affordances/%s/rearm",
		a.baseURL, affordance.ChannelRef, affordance.MessageRef, affordance.ID)
	status, err := a.do(ctx, http.MethodPost, url)
	if err != nil {
		return fmt.Errorf("re-arming affordance: %w", err)
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return fmt.Errorf("re-arming affordance: unexpected status %d: %w", status, sentinel.ErrUnavailable)
	}
	return nil
}

func (a *Adapter) do(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("X-Request-Id", requestcontext.RequestID(ctx))

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			a.logger.WarnContext(ctx, "failed to drain response body", "error", err)
		}
		resp.Body.Close()
	}()

	return resp.StatusCode, nil
}
