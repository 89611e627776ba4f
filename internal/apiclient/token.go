package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/palepusrinivas/guava-adminpanel-sub003/internal/apperr"
)

// TokenSource yields the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token; empty means signed out.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", apperr.ErrUnauthorized
	}
	return strings.TrimSpace(string(s)), nil
}

// FileTokenSource reads the persisted session token on every call, so a login
// flow can rotate the file underneath a running console.
type FileTokenSource struct {
	Path string
}

func (f FileTokenSource) Token(context.Context) (string, error) {
	if f.Path == "" {
		return "", apperr.ErrUnauthorized
	}
	b, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", apperr.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	tok := strings.TrimSpace(string(b))
	if tok == "" {
		return "", apperr.ErrUnauthorized
	}
	return tok, nil
}

// ChainTokens returns the first token any source yields.
type ChainTokens []TokenSource

func (c ChainTokens) Token(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		tok, err := src.Token(ctx)
		if err == nil {
			return tok, nil
		}
		if !errors.Is(err, apperr.ErrUnauthorized) {
			return "", err
		}
	}
	return "", apperr.ErrUnauthorized
}
