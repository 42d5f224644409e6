package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/korgan/korg/internal/mail"
)

// EmailFromToken reads the email claim of the ID token returned with tok.
// The signature is not verified: the token came straight from the token
// endpoint over TLS and is only used to label the account.
func EmailFromToken(tok *oauth2.Token) (string, error) {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return "", fmt.Errorf("no id_token in token response")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("parse id_token: %w", err)
	}
	email, _ := claims["email"].(string)
	if err := mail.ValidateEmail(email); err != nil {
		return "", fmt.Errorf("id_token email claim: %w", err)
	}
	return email, nil
}
