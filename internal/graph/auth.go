package graph

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/microsoft"
)

// Grant parameters for the on-behalf-of flow.
const (
	jwtBearerGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	requestedTokenUse = "on_behalf_of"
)

// DefaultScopes are requested on the on-behalf-of leg.
var DefaultScopes = []string{
	"Files.Read.All",
	"Sites.Read.All",
	"Sites.ReadWrite.All",
}

// ErrNoRefreshToken is returned by Refresh when it is handed an empty
// refresh token, typically because the on-behalf-of response omitted one.
var ErrNoRefreshToken = errors.New("graph: no refresh token to exchange")

// TokenURLForTenant returns the identity platform v2.0 token endpoint for a
// tenant ("common", "organizations", or a tenant id).
func TokenURLForTenant(tenant string) string {
	if tenant == "" {
		tenant = "common"
	}

	return microsoft.AzureADEndpoint(tenant).TokenURL
}

// ExchangeConfig identifies the confidential client performing exchanges.
type ExchangeConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Exchanger performs the two token exchanges that turn a user's delegated
// token into a Graph-scoped one. It keeps no state between calls.
type Exchanger struct {
	cfg        ExchangeConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewExchanger creates an Exchanger. A nil httpClient uses http.DefaultClient.
func NewExchanger(cfg ExchangeConfig, httpClient *http.Client, logger *slog.Logger) *Exchanger {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}

	return &Exchanger{cfg: cfg, httpClient: httpClient, logger: logger}
}

// oauthContext binds the exchanger's HTTP client for the oauth2 package.
func (e *Exchanger) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

// ExchangeOnBehalfOf asserts userToken with the jwt-bearer grant and returns
// the resulting credential. The client credentials go in the form body.
func (e *Exchanger) ExchangeOnBehalfOf(ctx context.Context, userToken string) (*Credential, error) {
	e.logger.Info("exchanging user token on behalf of",
		slog.Int("scopes", len(e.cfg.Scopes)),
	)

	// clientcredentials lets grant_type be overridden, which is exactly the
	// on-behalf-of request shape.
	cc := &clientcredentials.Config{
		ClientID:     e.cfg.ClientID,
		ClientSecret: e.cfg.ClientSecret,
		TokenURL:     e.cfg.TokenURL,
		Scopes:       e.cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"grant_type":          {jwtBearerGrant},
			"assertion":           {userToken},
			"requested_token_use": {requestedTokenUse},
		},
	}

	tok, err := cc.Token(e.oauthContext(ctx))

	return e.credential(StepOnBehalfOf, tok, err)
}

// Refresh redeems refreshToken with the refresh_token grant.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	if refreshToken == "" {
		return nil, &AuthExchangeError{Step: StepRefresh, Err: ErrNoRefreshToken}
	}

	e.logger.Info("refreshing graph token")

	cfg := &oauth2.Config{
		ClientID:     e.cfg.ClientID,
		ClientSecret: e.cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  e.cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	// A token with only a refresh token is invalid, so the source refreshes
	// immediately.
	src := cfg.TokenSource(e.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()

	return e.credential(StepRefresh, tok, err)
}

// credential converts an oauth2 result into a Credential or an
// AuthExchangeError for the given step.
func (e *Exchanger) credential(step string, tok *oauth2.Token, err error) (*Credential, error) {
	if err != nil {
		e.logger.Warn("token exchange failed",
			slog.String("step", step),
			slog.String("error", err.Error()),
		)

		return nil, &AuthExchangeError{Step: step, Err: err}
	}

	if tok == nil || tok.AccessToken == "" {
		return nil, &AuthExchangeError{Step: step, Err: ErrNoAccessToken}
	}

	e.logger.Info("token exchange succeeded",
		slog.String("step", step),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("has_refresh_token", tok.RefreshToken != ""),
	)

	return &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}, nil
}
