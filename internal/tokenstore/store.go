// Package tokenstore persists the bearer credential for each browser
// session. Presence of a token does not imply a valid session: the token
// must still be resolved against the remote API.
package tokenstore

import "context"

// Store persists at most one bearer token per browser session ID.
type Store interface {
	// Save writes the token under the session's well-known key.
	Save(ctx context.Context, sid, token string) error
	// Load returns the current token, if any.
	Load(ctx context.Context, sid string) (string, bool, error)
	// Clear removes the token. Clearing an absent token is not an error.
	Clear(ctx context.Context, sid string) error
}
