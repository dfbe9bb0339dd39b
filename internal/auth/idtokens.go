package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/HendrickPhan/go-verify-apple-id-token/validator"
	"google.golang.org/api/idtoken"
)

type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

var ErrProviderDisabled = errors.New("sign-in provider not configured")

// ExternalIdentity is what an admin sign-in provider vouches for.
type ExternalIdentity struct {
	Provider Provider
	Subject  string
	Email    string
}

// IDTokenVerifier validates provider ID tokens for admin sign-in. A provider
// with an empty audience is disabled.
type IDTokenVerifier struct {
	GoogleClientID string
	AppleServiceID string
}

func (v IDTokenVerifier) Verify(ctx context.Context, provider Provider, token string) (ExternalIdentity, error) {
	if strings.TrimSpace(token) == "" {
		return ExternalIdentity{}, errors.New("missing id token")
	}
	switch provider {
	case ProviderGoogle:
		if v.GoogleClientID == "" {
			return ExternalIdentity{}, ErrProviderDisabled
		}
		return verifyGoogle(ctx, token, v.GoogleClientID)
	case ProviderApple:
		if v.AppleServiceID == "" {
			return ExternalIdentity{}, ErrProviderDisabled
		}
		return verifyApple(token, v.AppleServiceID)
	default:
		return ExternalIdentity{}, fmt.Errorf("unknown provider %q", provider)
	}
}

func verifyGoogle(ctx context.Context, token, audience string) (ExternalIdentity, error) {
	payload, err := idtoken.Validate(ctx, token, audience)
	if err != nil {
		return ExternalIdentity{}, err
	}
	if payload.Issuer != "accounts.google.com" && payload.Issuer != "https://accounts.google.com" {
		return ExternalIdentity{}, fmt.Errorf("unexpected issuer: %s", payload.Issuer)
	}
	email, _ := payload.Claims["email"].(string)
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return ExternalIdentity{}, errors.New("google email not verified")
	}
	return ExternalIdentity{
		Provider: ProviderGoogle,
		Subject:  payload.Subject,
		Email:    normalizeEmail(email),
	}, nil
}

func verifyApple(token, audience string) (ExternalIdentity, error) {
	tok, err := validator.NewClient().VerifyIdToken(audience, token)
	if err != nil {
		return ExternalIdentity{}, err
	}
	if tok.Iss != "https://appleid.apple.com" {
		return ExternalIdentity{}, fmt.Errorf("unexpected issuer: %s", tok.Iss)
	}
	return ExternalIdentity{
		Provider: ProviderApple,
		Subject:  tok.Sub,
		Email:    normalizeEmail(tok.Email),
	}, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
