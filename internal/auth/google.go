package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/lamnguyen/vestika-backend/pkg/config"
	pkgerrors "github.com/lamnguyen/vestika-backend/pkg/errors"
)

const userinfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProfile is the subset of the userinfo response we care about.
type GoogleProfile struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleClient abstracts the OAuth code exchange so tests can stub it.
type GoogleClient interface {
	AuthCodeURL(state string) string
	FetchProfile(ctx context.Context, code string) (*GoogleProfile, error)
}

type googleClient struct {
	config *oauth2.Config
}

// NewGoogleClient builds the login flow client from configuration. It returns
// nil when Google login is not configured, which disables the routes.
func NewGoogleClient(cfg config.GoogleOAuthConfig) GoogleClient {
	if !cfg.Enabled() {
		return nil
	}
	return &googleClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *googleClient) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *googleClient) FetchProfile(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "google code exchange failed")
	}

	client := g.config.Client(ctx, token)
	resp, err := client.Get(userinfoEndpoint)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch google profile")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, pkgerrors.New(
			pkgerrors.CodeDependency,
			fmt.Sprintf("userinfo returned %s: %s", resp.Status, string(body)),
		)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode google profile")
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "google profile missing id or email")
	}
	return &profile, nil
}
