package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/saruyev/flexconfig"
	"github.com/saruyev/flexconfig/feeders"
)

// AppConfigSource feeds configuration from an App Configuration style store.
// Settings are loaded per selector in order, later selectors overwriting
// earlier ones on key collision.
type AppConfigSource struct {
	// Client lists settings. Use NewSettingsClient for the real service or
	// NewEmulatorSettingsClient against a local emulator.
	Client SettingsClient

	// Selectors pick which settings load. Empty means all keys with no
	// label. Duplicate selectors are removed keeping the last occurrence.
	Selectors []Selector

	// TrimPrefixes strips the first matching prefix from each key. Longer
	// prefixes take precedence.
	TrimPrefixes []string

	// SecretResolver resolves Key Vault references. Required when the store
	// contains secret reference settings; use NewSecretResolver or supply a
	// SecretResolverFunc in tests.
	SecretResolver SecretResolver

	// Optional sources tolerate load failure; the configuration keeps its
	// previous values for this layer.
	Optional bool

	// Logger, when set, records setting counts per load. Setting and secret
	// values are never logged.
	Logger flexconfig.Logger

	refs secretRefCache
}

// Name implements feeders.Feeder.
func (s *AppConfigSource) Name() string { return "appconfig" }

// IsOptional implements feeders.OptionalFeeder.
func (s *AppConfigSource) IsOptional() bool { return s.Optional }

// Feed implements feeders.Feeder.
func (s *AppConfigSource) Feed(ctx context.Context) (feeders.Snapshot, error) {
	selectors := deduplicateSelectors(s.Selectors)

	trimPrefixes := make([]string, len(s.TrimPrefixes))
	copy(trimPrefixes, s.TrimPrefixes)
	sort.Slice(trimPrefixes, func(i, j int) bool {
		return len(trimPrefixes[i]) > len(trimPrefixes[j])
	})

	merged := make(map[string]Setting)
	for _, selector := range selectors {
		settings, err := s.Client.ListSettings(ctx, selector)
		if err != nil {
			return nil, fmt.Errorf("list settings %q/%q: %w", selector.KeyFilter, selector.LabelFilter, err)
		}
		for _, setting := range settings {
			merged[setting.Key] = setting
		}
	}

	snapshot := make(feeders.Snapshot, len(merged))
	var snapshotMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(defaultParallelism)

	for _, setting := range merged {
		setting := setting
		key := trimKey(setting.Key, trimPrefixes)
		switch {
		case strings.EqualFold(setting.ContentType, featureFlagContentType):
			// Feature flags carry their own schema and are out of scope for
			// plain configuration keys.
			continue

		case strings.EqualFold(setting.ContentType, secretReferenceContentType):
			group.Go(func() error {
				value, err := s.resolveSecretRef(groupCtx, setting)
				if err != nil {
					return err
				}
				snapshotMu.Lock()
				snapshot[key] = &value
				snapshotMu.Unlock()
				return nil
			})

		case setting.Value != nil && isJSONContentType(setting.ContentType):
			expanded, ok := expandJSON(key, *setting.Value)
			if !ok {
				value := *setting.Value
				snapshotMu.Lock()
				snapshot[key] = &value
				snapshotMu.Unlock()
				continue
			}
			snapshotMu.Lock()
			for k, v := range expanded {
				snapshot[k] = v
			}
			snapshotMu.Unlock()

		case setting.Value == nil:
			snapshotMu.Lock()
			snapshot[key] = nil
			snapshotMu.Unlock()

		default:
			value := *setting.Value
			snapshotMu.Lock()
			snapshot[key] = &value
			snapshotMu.Unlock()
		}
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("loaded app configuration settings", "settings", len(merged), "keys", len(snapshot))
	}
	return snapshot, nil
}

// resolveSecretRef resolves a Key Vault reference setting to the secret
// value. Resolved values are cached per reference URI so repeated loads do
// not refetch unchanged secrets.
func (s *AppConfigSource) resolveSecretRef(ctx context.Context, setting Setting) (string, error) {
	if s.SecretResolver == nil {
		return "", fmt.Errorf("%w: setting %s", ErrNoSecretResolver, setting.Key)
	}
	if setting.Value == nil {
		return "", fmt.Errorf("%w: setting %s has no value", ErrInvalidSecretRef, setting.Key)
	}

	var ref struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal([]byte(*setting.Value), &ref); err != nil || ref.URI == "" {
		return "", fmt.Errorf("%w: setting %s", ErrInvalidSecretRef, setting.Key)
	}

	if cached, ok := s.refs.get(ref.URI); ok {
		return cached, nil
	}

	value, err := s.SecretResolver.ResolveSecret(ctx, ref.URI)
	if err != nil {
		return "", fmt.Errorf("resolve secret for %s: %w", setting.Key, err)
	}
	s.refs.put(ref.URI, value)
	return value, nil
}

func trimKey(key string, prefixes []string) string {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			return key[len(prefix):]
		}
	}
	return key
}

// secretRefCache memoizes resolved Key Vault references across reloads.
type secretRefCache struct {
	values sync.Map
}

func (c *secretRefCache) get(uri string) (string, bool) {
	v, ok := c.values.Load(uri)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (c *secretRefCache) put(uri, value string) {
	c.values.Store(uri, value)
}

// Invalidate drops cached secret values so the next load refetches them.
func (s *AppConfigSource) Invalidate() {
	s.refs.values.Range(func(key, _ any) bool {
		s.refs.values.Delete(key)
		return true
	})
}

// clientSecretResolver resolves vault references with a SecretsClient per
// vault host.
type clientSecretResolver struct {
	mu      sync.Mutex
	clients map[string]SecretsClient
	factory func(vaultURL string) (SecretsClient, error)
}

// NewSecretResolver builds a SecretResolver that dials each referenced vault
// with the given client factory. Pass a factory returning
// NewEmulatorSecretsClient in tests or NewSecretsClient in production.
func NewSecretResolver(factory func(vaultURL string) (SecretsClient, error)) SecretResolver {
	return &clientSecretResolver{
		clients: make(map[string]SecretsClient),
		factory: factory,
	}
}

// ResolveSecret implements SecretResolver.
func (r *clientSecretResolver) ResolveSecret(ctx context.Context, secretURI string) (string, error) {
	parsed, err := url.Parse(secretURI)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidVaultURI, secretURI)
	}
	name, err := secretNameFromID(secretURI)
	if err != nil {
		return "", err
	}

	vaultURL := parsed.Scheme + "://" + parsed.Host
	client, err := r.clientFor(vaultURL)
	if err != nil {
		return "", err
	}
	return client.GetSecret(ctx, name)
}

func (r *clientSecretResolver) clientFor(vaultURL string) (SecretsClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if client, ok := r.clients[vaultURL]; ok {
		return client, nil
	}
	client, err := r.factory(vaultURL)
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", vaultURL, err)
	}
	r.clients[vaultURL] = client
	return client, nil
}
