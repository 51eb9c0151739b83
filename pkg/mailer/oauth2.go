package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"github.com/angelmondragon/folio-backend/pkg/config"
	"golang.org/x/oauth2"
)

// oauth2Authenticator exchanges a long-lived refresh token for access tokens
// and presents them with the XOAUTH2 SASL mechanism.
type oauth2Authenticator struct {
	username string
	tokens   oauth2.TokenSource
}

func newOAuth2Authenticator(ctx context.Context, cfg config.MailConfig) *oauth2Authenticator {
	conf := &oauth2.Config{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.OAuthTokenURL},
	}
	// Config.TokenSource caches the access token until it expires.
	return &oauth2Authenticator{
		username: cfg.Username,
		tokens:   conf.TokenSource(context.WithoutCancel(ctx), &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken}),
	}
}

func (o *oauth2Authenticator) Mechanism() string { return "XOAUTH2" }

func (o *oauth2Authenticator) Auth(ctx context.Context) (smtp.Auth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tok, err := o.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh oauth2 token: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("oauth2 token response has no access token")
	}
	return &xoauth2Auth{username: o.username, token: tok.AccessToken}, nil
}

type xoauth2Auth struct {
	username string
	token    string
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("unencrypted connection")
	}
	resp := []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01")
	return "XOAUTH2", resp, nil
}

// Next answers the server's error challenge with an empty response so the
// final status line carries the failure.
func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
