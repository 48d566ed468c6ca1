// Package azure provides flexconfig feeders backed by Azure App
// Configuration and Azure Key Vault, plus refresh support for both. The
// feeders talk to narrow client interfaces so tests can run against local
// emulators instead of real cloud services.
package azure

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Content types carried by App Configuration settings that receive special
// treatment during loading.
const (
	secretReferenceContentType = "application/vnd.microsoft.appconfig.keyvaultref+json;charset=utf-8"
	featureFlagContentType     = "application/vnd.microsoft.appconfig.ff+json;charset=utf-8"
)

const (
	wildcard = "*"
	// noLabel selects settings without a label.
	noLabel = "\x00"
)

// Setting is one App Configuration key-value.
type Setting struct {
	Key         string
	Label       string
	Value       *string
	ContentType string
	ETag        string
}

// Selector filters which settings a source loads.
type Selector struct {
	// KeyFilter filters keys; "*" loads everything.
	KeyFilter string

	// LabelFilter filters labels; empty selects settings without a label.
	LabelFilter string
}

// WatchedSetting identifies a sentinel key-value watched for changes. A
// refresh reloads the full configuration only when a watched setting's ETag
// moved, keeping the polling cost to one request per sentinel.
type WatchedSetting struct {
	Key   string
	Label string
}

// SettingsClient is the minimal App Configuration surface the source needs.
// Production code wraps the Azure SDK client; tests use the emulator client.
type SettingsClient interface {
	ListSettings(ctx context.Context, selector Selector) ([]Setting, error)
	GetSetting(ctx context.Context, key, label string) (Setting, error)
}

// SecretsClient is the minimal Key Vault surface the source needs.
type SecretsClient interface {
	ListSecretNames(ctx context.Context) ([]string, error)
	GetSecret(ctx context.Context, name string) (string, error)
}

// SecretResolver resolves a Key Vault reference URI to a secret value.
// Implementations may resolve locally (tests) or against real vaults.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, keyVaultReference string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(ctx context.Context, keyVaultReference string) (string, error)

// ResolveSecret implements SecretResolver.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, keyVaultReference string) (string, error) {
	return f(ctx, keyVaultReference)
}

var (
	ErrNoSecretResolver  = errors.New("no Key Vault credential or secret resolver configured")
	ErrInvalidSecretRef  = errors.New("invalid Key Vault reference")
	ErrRateLimited       = errors.New("request was rate limited")
	ErrServiceStatus     = errors.New("service returned unexpected status")
	ErrSecretValueNil    = errors.New("secret value is nil")
	ErrInvalidVaultURI   = errors.New("invalid Key Vault URI")
	ErrEmptyRefreshCheck = errors.New("no watched settings configured")
)

var jsonContentTypePattern = regexp.MustCompile(`^application/(?:[^/]+\+)?json(;.*)?$`)

func isJSONContentType(contentType string) bool {
	return jsonContentTypePattern.MatchString(strings.ToLower(strings.TrimSpace(contentType)))
}

func deduplicateSelectors(selectors []Selector) []Selector {
	if len(selectors) == 0 {
		return []Selector{{KeyFilter: wildcard}}
	}

	// Later duplicates take precedence over earlier ones while the overall
	// order is preserved.
	seen := make(map[Selector]struct{}, len(selectors))
	result := make([]Selector, 0, len(selectors))
	for i := len(selectors) - 1; i >= 0; i-- {
		if _, exists := seen[selectors[i]]; exists {
			continue
		}
		seen[selectors[i]] = struct{}{}
		result = append(result, selectors[i])
	}
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}
