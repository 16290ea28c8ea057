package ipfs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrMissingCredential is returned before any network call when no API key
// is available.
var ErrMissingCredential = errors.New("ipfs: lighthouse api key is not configured")

// KeySource supplies the Lighthouse API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// StaticKey is a key taken from configuration or the environment.
type StaticKey string

func (k StaticKey) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(k))
	if key == "" {
		return "", ErrMissingCredential
	}
	return key, nil
}

// Getter is satisfied by *paramstore.Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamKey reads the key from a parameter store on first use and keeps it for
// the lifetime of the process. Failed lookups are not cached.
type ParamKey struct {
	getter Getter
	name   string

	mu  sync.Mutex
	key string
}

func NewParamKey(getter Getter, name string) *ParamKey {
	return &ParamKey{getter: getter, name: strings.TrimSpace(name)}
}

func (p *ParamKey) APIKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != "" {
		return p.key, nil
	}
	if p.getter == nil || p.name == "" {
		return "", ErrMissingCredential
	}
	key, err := p.getter.GetParameter(ctx, p.name)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingCredential, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrMissingCredential
	}
	p.key = key
	return key, nil
}
