// Package auth issues operator access tokens for the management endpoints.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Options configures the operator account and token lifetime.
type Options struct {
	Username     string
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
}

// Service authenticates the operator and issues access tokens.
type Service struct {
	username string
	hash     []byte
	ttl      time.Duration
	tokens   *TokenManager
}

type TokenPair struct {
	AccessToken string
	ExpiresIn   int64
}

// NewService validates opts. The password hash must be a bcrypt hash.
func NewService(opts Options) (*Service, error) {
	if opts.Username == "" {
		return nil, fmt.Errorf("operator username is required")
	}
	if _, err := bcrypt.Cost([]byte(opts.PasswordHash)); err != nil {
		return nil, fmt.Errorf("operator password hash: %w", err)
	}
	tokens, err := NewTokenManager(opts.Secret)
	if err != nil {
		return nil, err
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 15 * time.Minute
	}
	return &Service{username: opts.Username, hash: []byte(opts.PasswordHash), ttl: opts.TokenTTL, tokens: tokens}, nil
}

// Login checks the credentials and returns a signed access token.
func (s *Service) Login(username, password string) (TokenPair, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil || !userOK {
		return TokenPair{}, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Generate(s.username, s.ttl)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: token, ExpiresIn: int64(exp.Sub(s.tokens.now()).Seconds())}, nil
}

// Verify returns the operator a token was issued to.
func (s *Service) Verify(token string) (string, error) {
	return s.tokens.Validate(token)
}
