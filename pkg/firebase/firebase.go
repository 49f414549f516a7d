// Package firebase bootstraps the Firebase Admin SDK shared by auth, messaging and Firestore.
package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// NewApp initializes a Firebase app from a service account file and/or project id
func NewApp(ctx context.Context, credentialsFile, projectID string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// Identity is the verified subject of a Firebase ID token
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// TokenVerifier checks Firebase Auth ID tokens issued to the mobile app
type TokenVerifier struct {
	client *auth.Client
}

func NewTokenVerifier(ctx context.Context, app *firebase.App) (*TokenVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}
	return &TokenVerifier{client: client}, nil
}

// Verify validates the ID token and extracts the user's identity
func (v *TokenVerifier) Verify(ctx context.Context, idToken string) (*Identity, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("invalid firebase token: %w", err)
	}

	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	picture, _ := token.Claims["picture"].(string)

	return &Identity{
		UID:         token.UID,
		Email:       email,
		DisplayName: name,
		PhotoURL:    picture,
	}, nil
}
