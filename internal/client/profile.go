package client

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
	"time"

	"github.com/AlexZinkM/wallet-relay/internal/model"
)

// ErrRemoteStore wraps every failure talking to the identity provider
var ErrRemoteStore = errors.New("remote profile store")

// ProfileClient client for the identity provider's user management API.
// Only the caller's own user_metadata is read or written.
type ProfileClient struct {
	baseURL string
	client  *http.Client
}

// NewProfileClient creates a client for baseURL, e.g. https://tenant.auth0.com
func NewProfileClient(baseURL string, timeout time.Duration) *ProfileClient {
	return &ProfileClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type userResponse struct {
	UserMetadata *model.EncryptedBlob `json:"user_metadata"`
}

type userPatch struct {
	UserMetadata model.EncryptedBlob `json:"user_metadata"`
}

// FetchMetadata returns the stored blob of identity, or nil if the user
// has none yet.
func (c *ProfileClient) FetchMetadata(ctx context.Context, identity, token string) (*model.EncryptedBlob, error) {
	req, err := c.newRequest(ctx, http.MethodGet, identity, token, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get profile: %v", ErrRemoteStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("get profile", resp)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v", ErrRemoteStore, err)
	}
	if user.UserMetadata.IsEmpty() {
		return nil, nil
	}
	return user.UserMetadata, nil
}

// UpdateMetadata replaces the stored blob of identity
func (c *ProfileClient) UpdateMetadata(ctx context.Context, identity, token string, blob model.EncryptedBlob) error {
	body, err := json.Marshal(userPatch{UserMetadata: blob})
	if err != nil {
		return fmt.Errorf("failed to marshal profile patch: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPatch, identity, token, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to update profile: %v", ErrRemoteStore, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("update profile", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *ProfileClient) newRequest(ctx context.Context, method, identity, token string, body io.Reader) (*http.Request, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", ErrRemoteStore)
	}
	if token == "" {
		return nil, fmt.Errorf("%w: access token is required", ErrRemoteStore)
	}

	u := fmt.Sprintf("%s/api/v2/users/%s", c.baseURL, url.PathEscape(identity))
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemoteStore, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: failed to %s: status %d: %s", ErrRemoteStore, op, resp.StatusCode, strings.TrimSpace(string(msg)))
}
