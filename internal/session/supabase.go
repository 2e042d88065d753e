package session

import (
	"context"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// SupabaseProvider asks the Supabase auth server about each token instead of
// verifying it locally, so server-side sign-outs take effect immediately.
type SupabaseProvider struct {
	client *supabase.Client
}

func NewSupabaseProvider(url, publishableKey string) (*SupabaseProvider, error) {
	client, err := supabase.NewClient(url, publishableKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &SupabaseProvider{client: client}, nil
}

func (p *SupabaseProvider) Current(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	user, err := p.client.Auth.WithToken(token).GetUser()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	return &Session{
		UserID: user.ID.String(),
		Email:  user.Email,
	}, nil
}

func (p *SupabaseProvider) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := p.client.Auth.WithToken(token).Logout(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
