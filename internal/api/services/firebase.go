package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrNoEmail = errors.New("id token has no email claim")

// FirebaseVerifier checks ID tokens issued to the web client by Firebase
// Authentication.
type FirebaseVerifier struct {
	client *auth.Client
}

func NewFirebaseVerifier(ctx context.Context, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth client: %w", err)
	}

	slog.Info("firebase identity verification enabled")
	return &FirebaseVerifier{client: client}, nil
}

// VerifyEmail verifies the token signature and expiry and returns its email.
func (v *FirebaseVerifier) VerifyEmail(ctx context.Context, idToken string) (string, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", fmt.Errorf("verify id token: %w", err)
	}
	email, _ := token.Claims["email"].(string)
	if email == "" {
		return "", ErrNoEmail
	}
	return email, nil
}
