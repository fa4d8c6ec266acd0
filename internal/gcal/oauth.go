package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"schedule-sync-bot/internal/calsync"
)

// OAuth refreshes and revokes user tokens of the bot's OAuth client.
type OAuth struct {
	cfg       *oauth2.Config
	revokeURL string
	client    *http.Client
}

// NewOAuth uses Google's endpoints unless tokenURL / revokeURL override them.
// client may be nil.
func NewOAuth(clientID, clientSecret, tokenURL, revokeURL string, client *http.Client) *OAuth {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
	if tokenURL != "" {
		cfg.Endpoint.TokenURL = tokenURL
	}
	if revokeURL == "" {
		revokeURL = "https://oauth2.googleapis.com/revoke"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OAuth{cfg: cfg, revokeURL: revokeURL, client: client}
}

// AuthCodeURL is the consent link; state carries the chat id to the
// callback that stores the tokens.
func (o *OAuth) AuthCodeURL(state string) string {
	return o.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Refresh trades a refresh token for a new access token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	const op = "gcal.OAuth.Refresh"

	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.client)
	tok, err := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && rejected(re) {
			return nil, fmt.Errorf("%s: %w: %s", op, calsync.ErrNotConnected, re.ErrorCode)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tok, nil
}

// Revoke invalidates a token. 400 means Google no longer knows the token,
// which is as good as revoked.
func (o *OAuth) Revoke(ctx context.Context, token string) error {
	const op = "gcal.OAuth.Revoke"

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status)
	}
	return nil
}

func rejected(re *oauth2.RetrieveError) bool {
	switch re.ErrorCode {
	case "invalid_grant", "unauthorized_client", "invalid_client":
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusUnauthorized
}
