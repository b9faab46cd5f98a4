package fleetapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetwave/fleetwave/internal/common/httpclient"
)

// APITokenIssuer obtains workspace tokens from the auth endpoint. Token
// requests authenticate with the API key rather than the workspace token, so
// an expired or revoked workspace token cannot block its own refresh.
type APITokenIssuer struct {
	client httpclient.Doer
	config httpclient.Configurator
}

// NewAPITokenIssuer creates an issuer that requests tokens over the given
// transport.
func NewAPITokenIssuer(client httpclient.Doer, config httpclient.Configurator) *APITokenIssuer {
	return &APITokenIssuer{client: client, config: config}
}

var _ TokenIssuer = &APITokenIssuer{}

// tokenResponse represents the response from the workspace token endpoint.
type tokenResponse struct {
	Token         string    `json:"token"`
	ExpiresAt     time.Time `json:"expiresAt"`
	WorkspaceName string    `json:"workspaceName"`
}

// IssueToken requests a token scoped to the given workspace.
func (i *APITokenIssuer) IssueToken(ctx context.Context, workspaceID string) (Session, error) {
	opts := httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   "v1/auth/workspace-tokens/" + workspaceID,
	}
	if apiKey := i.config.GetAPIKey(); apiKey != "" {
		opts.Headers = map[string]string{"Authorization": "Bearer " + apiKey}
	}

	res, err := i.client.Do(ctx, opts)
	if err != nil {
		return Session{}, ErrSessionRefresh.MsgErr("token request failed", err)
	}
	if res.StatusCode != http.StatusOK {
		return Session{}, ErrSessionRefresh.
			Msg(responseMessage(res)).
			SetStatusCode(res.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(res.Body, &tr); err != nil {
		return Session{}, ErrSessionRefresh.MsgErr("unable to parse token response", err)
	}
	if tr.Token == "" {
		return Session{}, ErrSessionRefresh.Msg("token response is missing a token")
	}

	expiry := tr.ExpiresAt
	if expiry.IsZero() {
		// Fall back to the expiry claim inside the token itself.
		expiry, err = TokenExpiry(tr.Token)
		if err != nil {
			return Session{}, ErrSessionRefresh.MsgErr("token response has no expiry", err)
		}
	}

	return Session{
		WorkspaceID:   workspaceID,
		WorkspaceName: tr.WorkspaceName,
		Token:         tr.Token,
		Expiry:        expiry,
	}, nil
}
