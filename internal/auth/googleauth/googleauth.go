// Package googleauth resolves the signed-in identity from Google
// credentials in the environment. The user id it returns scopes the remote
// Firestore collection.
package googleauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

type Provider struct {
	svc *goauth2.Service
}

// NewFromEnv creates a provider using environment credentials.
// Optional: GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE;
// falls back to GOOGLE_APPLICATION_CREDENTIALS / application default
// credentials.
func NewFromEnv(ctx context.Context) (*Provider, error) {
	inlineJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	opts := []option.ClientOption{option.WithScopes(goauth2.UserinfoEmailScope)}
	switch {
	case inlineJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials for identity")
		opts = append(opts, option.WithCredentialsJSON([]byte(inlineJSON)))
	case credFile != "":
		data, err := os.ReadFile(credFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Using service account file for identity", "path", credFile)
		opts = append(opts, option.WithCredentialsJSON(data))
	}

	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create oauth2 service: %w", err)
	}

	return &Provider{svc: svc}, nil
}

// SignIn resolves the authenticated user's stable identifier.
func (p *Provider) SignIn(ctx context.Context) (string, error) {
	info, err := p.svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Id != "" {
		return info.Id, nil
	}
	if info.Email != "" {
		return info.Email, nil
	}
	return "", errors.New("userinfo response carries no identifier")
}

// SignOut has nothing to revoke for ambient credentials; the session ends
// locally in the session manager.
func (p *Provider) SignOut(ctx context.Context) error {
	slog.DebugContext(ctx, "Sign-out requested, ambient credentials left intact")
	return nil
}
