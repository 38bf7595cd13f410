// Package authclient mirrors the browser's view of the two session sources.
// It probes the OAuth and custom session endpoints with a cookie jar and
// folds the answers through auth.Reduce.
package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"github.com/dukerupert/dandy/internal/auth"
	ws "github.com/dukerupert/dandy/internal/websocket"
)

// Client holds a cookie jar scoped to one base URL.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.Mutex
	state auth.ClientState
}

// New returns a client for baseURL. Redirects are not followed so callers can
// inspect where the server sends them.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// HTTPClient exposes the underlying client and its cookie jar.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// State returns the last folded state.
func (c *Client) State() auth.ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) apply(ev auth.ClientEvent) auth.ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = auth.Reduce(c.state, ev)
	return c.state
}

// Refresh re-probes both sources. A probe that fails counts as
// unauthenticated for that source; the first error is returned.
func (c *Client) Refresh(ctx context.Context) (auth.ClientState, error) {
	c.apply(auth.ClientEvent{Type: auth.EventRefresh})

	oauthUser, oauthErr := c.probeOAuth(ctx)
	c.apply(auth.ClientEvent{Type: auth.EventOAuthResolved, User: oauthUser})

	customUser, customErr := c.probeCustom(ctx)
	st := c.apply(auth.ClientEvent{Type: auth.EventCustomResolved, User: customUser})

	return st, errors.Join(oauthErr, customErr)
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) probeOAuth(ctx context.Context) (*auth.ClientUser, error) {
	resp, err := c.get(ctx, "/api/auth/session")
	if err != nil {
		return nil, fmt.Errorf("oauth probe: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oauth probe: status %d", resp.StatusCode)
	}

	var body struct {
		User *auth.ClientUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("oauth probe: decode: %w", err)
	}
	return body.User, nil
}

func (c *Client) probeCustom(ctx context.Context) (*auth.ClientUser, error) {
	resp, err := c.get(ctx, "/api/auth/check-session")
	if err != nil {
		return nil, fmt.Errorf("session probe: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, nil
	default:
		return nil, fmt.Errorf("session probe: status %d", resp.StatusCode)
	}

	var body struct {
		User struct {
			Name  string  `json:"name"`
			Email string  `json:"email"`
			Image *string `json:"image"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("session probe: decode: %w", err)
	}
	u := &auth.ClientUser{Name: body.User.Name, Email: body.User.Email}
	if body.User.Image != nil {
		u.Image = *body.User.Image
	}
	return u, nil
}

// Follow requests link (a verification or sign-in URL) so any cookies it
// sets land in the jar, then refreshes. It returns the redirect target.
func (c *Client) Follow(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("follow link: %w", err)
	}
	resp.Body.Close()

	loc := resp.Header.Get("Location")
	if _, err := c.Refresh(ctx); err != nil {
		return loc, err
	}
	return loc, nil
}

// SignOut ends both sessions on the server and resets local state.
func (c *Client) SignOut(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/signout", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sign out: status %d", resp.StatusCode)
	}
	c.apply(auth.ClientEvent{Type: auth.EventSignedOut})
	return nil
}

// Watch subscribes to auth events and refreshes on each one, calling
// onChange with the new state. It blocks until ctx is done or the
// connection drops.
func (c *Client) Watch(ctx context.Context, onChange func(auth.ClientState)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/api/auth/events"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		return fmt.Errorf("dial events: %w", err)
	}
	defer conn.CloseNow()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "")
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}

		var msg ws.Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			continue
		}
		st, _ := c.Refresh(ctx)
		onChange(st)
	}
}
