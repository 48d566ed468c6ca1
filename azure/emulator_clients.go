package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Emulator clients speak the plain REST dialect served by local emulator
// test doubles (see internal/emulator). Unlike the SDK clients they skip
// authentication, but they honor Retry-After on rate-limit responses the
// same way the SDK pipeline does.

const emulatorMaxRetries = 3

// EmulatorSecretsClient is a SecretsClient for a local Key Vault emulator.
type EmulatorSecretsClient struct {
	Endpoint string
	Client   *http.Client

	// MaxRetries bounds retry attempts on 429 and 5xx responses. Defaults
	// to 3.
	MaxRetries int
}

// NewEmulatorSecretsClient creates a client for the emulator at endpoint.
func NewEmulatorSecretsClient(endpoint string) *EmulatorSecretsClient {
	return &EmulatorSecretsClient{Endpoint: strings.TrimRight(endpoint, "/")}
}

// ListSecretNames implements SecretsClient.
func (c *EmulatorSecretsClient) ListSecretNames(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, c.Endpoint+"/secrets")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode secret list: %w", err)
	}

	names := make([]string, 0, len(payload.Value))
	for _, item := range payload.Value {
		name, err := secretNameFromID(item.ID)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// GetSecret implements SecretsClient.
func (c *EmulatorSecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	body, err := c.get(ctx, c.Endpoint+"/secrets/"+url.PathEscape(name))
	if err != nil {
		return "", err
	}

	var payload struct {
		Value *string `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode secret %s: %w", name, err)
	}
	if payload.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretValueNil, name)
	}
	return *payload.Value, nil
}

func (c *EmulatorSecretsClient) get(ctx context.Context, url string) ([]byte, error) {
	retries := c.MaxRetries
	if retries <= 0 {
		retries = emulatorMaxRetries
	}
	return emulatorGet(ctx, c.Client, url, retries)
}

// secretNameFromID extracts the secret name from a Key Vault style secret
// identifier: https://host/secrets/<name>[/<version>].
func secretNameFromID(id string) (string, error) {
	parsed, err := url.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidVaultURI, id)
	}
	parts := strings.Split(strings.TrimPrefix(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "secrets" || parts[1] == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidVaultURI, id)
	}
	return parts[1], nil
}

// EmulatorSettingsClient is a SettingsClient for a local App Configuration
// emulator.
type EmulatorSettingsClient struct {
	Endpoint string
	Client   *http.Client

	// MaxRetries bounds retry attempts on 429 and 5xx responses. Defaults
	// to 3.
	MaxRetries int
}

// NewEmulatorSettingsClient creates a client for the emulator at endpoint.
func NewEmulatorSettingsClient(endpoint string) *EmulatorSettingsClient {
	return &EmulatorSettingsClient{Endpoint: strings.TrimRight(endpoint, "/")}
}

type emulatorSetting struct {
	Key         string  `json:"key"`
	Label       string  `json:"label,omitempty"`
	Value       *string `json:"value"`
	ContentType string  `json:"content_type,omitempty"`
	ETag        string  `json:"etag"`
}

// ListSettings implements SettingsClient.
func (c *EmulatorSettingsClient) ListSettings(ctx context.Context, selector Selector) ([]Setting, error) {
	query := url.Values{}
	if selector.KeyFilter != "" {
		query.Set("key", selector.KeyFilter)
	}
	if selector.LabelFilter != "" {
		query.Set("label", selector.LabelFilter)
	}

	body, err := c.get(ctx, c.Endpoint+"/kv?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items []emulatorSetting `json:"items"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode setting list: %w", err)
	}

	settings := make([]Setting, 0, len(payload.Items))
	for _, item := range payload.Items {
		settings = append(settings, Setting(item))
	}
	return settings, nil
}

// GetSetting implements SettingsClient.
func (c *EmulatorSettingsClient) GetSetting(ctx context.Context, key, label string) (Setting, error) {
	query := url.Values{}
	if label != "" {
		query.Set("label", label)
	}

	body, err := c.get(ctx, c.Endpoint+"/kv/"+url.PathEscape(key)+"?"+query.Encode())
	if err != nil {
		return Setting{}, err
	}

	var item emulatorSetting
	if err := json.Unmarshal(body, &item); err != nil {
		return Setting{}, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return Setting(item), nil
}

func (c *EmulatorSettingsClient) get(ctx context.Context, url string) ([]byte, error) {
	retries := c.MaxRetries
	if retries <= 0 {
		retries = emulatorMaxRetries
	}
	return emulatorGet(ctx, c.Client, url, retries)
}

func emulatorGet(ctx context.Context, client *http.Client, url string, retries int) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request %s: %w", url, err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("read response: %w", err)
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %s", ErrRateLimited, url)
			if attempt == retries {
				return nil, lastErr
			}
			wait := retryAfter(resp, time.Duration(attempt+1)*100*time.Millisecond)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}

		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %s returned %d", ErrServiceStatus, url, resp.StatusCode)
			if attempt == retries {
				return nil, lastErr
			}
			if err := sleepCtx(ctx, time.Duration(attempt+1)*50*time.Millisecond); err != nil {
				return nil, err
			}

		default:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s returned %d", ErrServiceStatus, url, resp.StatusCode)
		}
	}
	return nil, lastErr
}

func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
