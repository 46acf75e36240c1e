// internal/app/features/authfed/provider.go
package authfed

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// Provider wraps the OIDC provider, OAuth2 config and ID-token verifier
// for the identity federation.
type Provider struct {
	oauth2Conf *oauth2.Config
	verifier   *oidc.IDTokenVerifier
}

// NewProvider discovers the issuer and prepares the verifier.
func NewProvider(ctx context.Context, issuerURL, clientID, clientSecret, redirectURL string) (*Provider, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider: %w", err)
	}

	return &Provider{
		oauth2Conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			Endpoint:     provider.Endpoint(),
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AuthCodeURL builds the consent-screen URL carrying state and nonce.
func (p *Provider) AuthCodeURL(state, nonce string) string {
	return p.oauth2Conf.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Exchange trades the callback code for tokens and verifies the ID
// token, including the nonce round-trip.
func (p *Provider) Exchange(ctx context.Context, code, nonce string) (*oidc.IDToken, error) {
	token, err := p.oauth2Conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("token response missing id_token")
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, errors.New("id token nonce mismatch")
	}
	return idToken, nil
}
