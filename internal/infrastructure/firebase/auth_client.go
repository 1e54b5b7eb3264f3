package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
)

// AuthClient wraps ID-token verification. Account management lives in the
// identity subsystem; this service only needs to know who is calling.
type AuthClient struct {
	client *auth.Client
}

func NewAuthClient(client *auth.Client) *AuthClient {
	return &AuthClient{
		client: client,
	}
}

func (a *AuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := a.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}
