package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Profile is the public view of an account.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type userData struct {
	User *Profile `json:"user"`
}

type sessionData struct {
	User        *Profile `json:"user"`
	AccessToken string   `json:"accessToken"`
}

// UsersClient calls the users API. Credential cookies set by the server are
// kept in a cookie jar and sent back automatically; an expired access token
// is renewed once through /refresh before a call is given up.
type UsersClient struct {
	baseURL string
	http    *http.Client
	backoff func() retry.Backoff
}

func NewUsersClient(baseURL string, timeout time.Duration) (*UsersClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &UsersClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: timeout},
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
		},
	}, nil
}

func (c *UsersClient) Register(ctx context.Context, name, email string, password []byte) (*Profile, error) {
	body := map[string]string{"name": name, "email": email, "password": string(password)}

	var data userData
	if _, err := c.do(ctx, http.MethodPost, "/new", body, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *UsersClient) Login(ctx context.Context, email string, password []byte) (*Profile, error) {
	body := map[string]string{"email": email, "password": string(password)}

	var data sessionData
	if _, err := c.do(ctx, http.MethodPost, "/login", body, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

// Me returns the profile of the logged-in user.
func (c *UsersClient) Me(ctx context.Context) (*Profile, error) {
	var data userData
	err := c.withRefresh(ctx, func() error {
		_, err := c.do(ctx, http.MethodGet, "/me", nil, &data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data.User, nil
}

// Refresh asks the server for a new access token using the refresh cookie.
func (c *UsersClient) Refresh(ctx context.Context) (*Profile, error) {
	var data sessionData
	if _, err := c.do(ctx, http.MethodGet, "/refresh", nil, &data); err != nil {
		return nil, err
	}
	return data.User, nil
}

func (c *UsersClient) ChangePassword(ctx context.Context, current, next []byte) error {
	body := map[string]string{"currentPassword": string(current), "newPassword": string(next)}
	return c.withRefresh(ctx, func() error {
		_, err := c.do(ctx, http.MethodPost, "/change-password", body, nil)
		return err
	})
}

// Logout drops the credential cookies. It reports whether the server had
// anything to clear.
func (c *UsersClient) Logout(ctx context.Context) (bool, error) {
	code, err := c.do(ctx, http.MethodPost, "/logout", nil, nil)
	if err != nil {
		return false, err
	}
	return code == http.StatusOK, nil
}

// withRefresh runs call and, if it was rejected as unauthenticated, renews
// the access token and runs it once more.
func (c *UsersClient) withRefresh(ctx context.Context, call func() error) error {
	err := call()
	if !errors.Is(err, ErrUnauthorized) {
		return err
	}
	if _, rerr := c.Refresh(ctx); rerr != nil {
		return err
	}
	return call()
}

// do sends one request and decodes the envelope's data into out. GET requests
// are retried with backoff while the server is unreachable.
func (c *UsersClient) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return 0, err
		}
	}

	// only idempotent requests are retried
	backoff := retry.WithMaxRetries(0, retry.NewConstant(time.Millisecond))
	if method == http.MethodGet {
		backoff = c.backoff()
	}

	var resp *http.Response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}
