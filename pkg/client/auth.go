package client

import (
	"context"
	"net/http"

	"github.com/sketchsync/sketchsync/pkg/protocol"
)

// Login authenticates with username (or email) and password. On success the
// editor sets a session cookie which the client keeps for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body := protocol.LoginRequest{Email: username, Password: password}
	return c.do(ctx, "login", http.MethodPost, protocol.PathLogin, body, nil)
}
