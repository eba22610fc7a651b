package google

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoToken indicates that no token is stored for the user.
var ErrNoToken = errors.New("no stored token")

// TokenProvider is an interface for storing and retrieving the user's
// OAuth token. This abstraction allows different backings (sqlite store,
// in-memory for tests).
type TokenProvider interface {
	// Token retrieves the stored token, or ErrNoToken when absent.
	Token(ctx context.Context) (*oauth2.Token, error)

	// Save persists the token, replacing any previous one.
	Save(ctx context.Context, token *oauth2.Token) error

	// Delete removes the stored token. Deleting an absent token is not
	// an error.
	Delete(ctx context.Context) error

	// HasToken reports whether a token is stored.
	HasToken(ctx context.Context) (bool, error)
}

// MemoryTokenProvider keeps the token in process memory. It backs tests
// and short-lived runs that must not touch the token database.
type MemoryTokenProvider struct {
	mu    sync.Mutex
	token *oauth2.Token
}

// NewMemoryTokenProvider creates an empty in-memory token provider.
func NewMemoryTokenProvider() *MemoryTokenProvider {
	return &MemoryTokenProvider{}
}

// Token retrieves the stored token, or ErrNoToken when absent.
func (p *MemoryTokenProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == nil {
		return nil, ErrNoToken
	}
	copied := *p.token
	return &copied, nil
}

// Save persists the token in memory.
func (p *MemoryTokenProvider) Save(ctx context.Context, token *oauth2.Token) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := *token
	p.token = &copied
	return nil
}

// Delete removes the stored token.
func (p *MemoryTokenProvider) Delete(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
	return nil
}

// HasToken reports whether a token is stored.
func (p *MemoryTokenProvider) HasToken(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != nil, nil
}
