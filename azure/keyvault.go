package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/saruyev/flexconfig"
	"github.com/saruyev/flexconfig/feeders"
	"github.com/saruyev/flexconfig/internal/flatmap"
)

// secretNameSeparator is the substitute for the layer separator in secret
// names. Key Vault forbids ":" in names, so "App--Timeout" loads as
// "App:Timeout".
const secretNameSeparator = "--"

const defaultParallelism = 8

// KeyVaultSource feeds configuration from a Key Vault style secret store.
// Secret names become configuration keys with "--" mapped to ":".
type KeyVaultSource struct {
	// Client lists and fetches secrets. Use NewSecretsClient for the real
	// service or NewEmulatorSecretsClient against a local emulator.
	Client SecretsClient

	// Prefix, when set, keeps only secrets whose mapped key starts with it
	// and trims it from the resulting key.
	Prefix string

	// FlattenJSON expands secrets whose value parses as a JSON object or
	// array into nested keys instead of storing the raw document.
	FlattenJSON bool

	// Parallelism caps concurrent secret fetches. Defaults to 8.
	Parallelism int

	// Optional sources tolerate load failure; the configuration keeps its
	// previous values for this layer.
	Optional bool

	// Logger, when set, records secret counts and names. Secret values are
	// never logged.
	Logger flexconfig.Logger
}

// Name implements feeders.Feeder.
func (s *KeyVaultSource) Name() string {
	if s.Prefix != "" {
		return fmt.Sprintf("keyvault(%s)", s.Prefix)
	}
	return "keyvault"
}

// IsOptional implements feeders.OptionalFeeder.
func (s *KeyVaultSource) IsOptional() bool { return s.Optional }

// Feed implements feeders.Feeder. Secrets are fetched in parallel and the
// first failure cancels the remaining fetches.
func (s *KeyVaultSource) Feed(ctx context.Context) (feeders.Snapshot, error) {
	names, err := s.Client.ListSecretNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list secrets: %w", err)
	}

	type fetched struct {
		key   string
		value string
	}

	parallelism := s.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	var mu sync.Mutex
	results := make([]fetched, 0, len(names))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)

	for _, name := range names {
		name := name
		key, ok := s.mapName(name)
		if !ok {
			continue
		}
		group.Go(func() error {
			value, err := s.Client.GetSecret(groupCtx, name)
			if err != nil {
				return fmt.Errorf("get secret %s: %w", name, err)
			}
			mu.Lock()
			results = append(results, fetched{key: key, value: value})
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Deterministic overwrite order for JSON expansions.
	sort.Slice(results, func(i, j int) bool { return results[i].key < results[j].key })

	if s.Logger != nil {
		s.Logger.Debug("loaded key vault secrets", "source", s.Name(), "count", len(results))
	}

	snapshot := make(feeders.Snapshot, len(results))
	for _, item := range results {
		if s.FlattenJSON {
			if expanded, ok := expandJSON(item.key, item.value); ok {
				for k, v := range expanded {
					snapshot[k] = v
				}
				continue
			}
		}
		value := item.value
		snapshot[item.key] = &value
	}
	return snapshot, nil
}

// mapName converts a secret name to a configuration key and applies the
// prefix filter. Returns false when the secret falls outside the prefix.
func (s *KeyVaultSource) mapName(name string) (string, bool) {
	key := strings.ReplaceAll(name, secretNameSeparator, flatmap.Separator)
	if s.Prefix == "" {
		return key, true
	}
	prefix := strings.TrimSuffix(s.Prefix, flatmap.Separator) + flatmap.Separator
	if !strings.HasPrefix(strings.ToLower(key), strings.ToLower(prefix)) {
		return "", false
	}
	return key[len(prefix):], true
}

// expandJSON flattens a JSON object or array value under root. Scalar or
// malformed values report false so the caller stores the raw string.
func expandJSON(root, value string) (feeders.Snapshot, bool) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return nil, false
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, false
	}

	flat := flatmap.Flatten(parsed)
	expanded := make(feeders.Snapshot, len(flat))
	for k, v := range flat {
		if k == "" {
			expanded[root] = v
			continue
		}
		expanded[root+flatmap.Separator+k] = v
	}
	return expanded, true
}
