package azure

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSettingsClient serves settings grouped by selector.
type fakeSettingsClient struct {
	settings map[Selector][]Setting
	listErr  error
}

func (c *fakeSettingsClient) ListSettings(_ context.Context, selector Selector) ([]Setting, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.settings[selector], nil
}

func (c *fakeSettingsClient) GetSetting(context.Context, string, string) (Setting, error) {
	return Setting{}, errors.New("not implemented")
}

func strp(s string) *string { return &s }

func TestAppConfigSourceDefaultSelector(t *testing.T) {
	source := &AppConfigSource{Client: &fakeSettingsClient{settings: map[Selector][]Setting{
		{KeyFilter: wildcard}: {
			{Key: "Service:Timeout", Value: strp("30")},
		},
	}}}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30", *snapshot["Service:Timeout"])
}

func TestAppConfigSourceLaterSelectorsWin(t *testing.T) {
	source := &AppConfigSource{
		Client: &fakeSettingsClient{settings: map[Selector][]Setting{
			{KeyFilter: "*"}: {
				{Key: "Mode", Value: strp("base")},
			},
			{KeyFilter: "*", LabelFilter: "prod"}: {
				{Key: "Mode", Label: "prod", Value: strp("live")},
			},
		}},
		Selectors: []Selector{
			{KeyFilter: "*"},
			{KeyFilter: "*", LabelFilter: "prod"},
		},
	}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "live", *snapshot["Mode"])
}

func TestAppConfigSourceTrimPrefixes(t *testing.T) {
	source := &AppConfigSource{
		Client: &fakeSettingsClient{settings: map[Selector][]Setting{
			{KeyFilter: wildcard}: {
				{Key: "shared:app:Timeout", Value: strp("30")},
				{Key: "shared:Mode", Value: strp("live")},
			},
		}},
		TrimPrefixes: []string{"shared:", "shared:app:"},
	}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "30", *snapshot["Timeout"], "longest prefix wins")
	assert.Equal(t, "live", *snapshot["Mode"])
}

func TestAppConfigSourceJSONContentType(t *testing.T) {
	source := &AppConfigSource{Client: &fakeSettingsClient{settings: map[Selector][]Setting{
		{KeyFilter: wildcard}: {
			{Key: "Limits", Value: strp(`{"rps":100}`), ContentType: "application/json"},
			{Key: "Vendor", Value: strp(`{"a":1}`), ContentType: "application/vnd.custom+json"},
			{Key: "Plain", Value: strp(`{"b":2}`), ContentType: "text/plain"},
		},
	}}}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "100", *snapshot["Limits:rps"])
	assert.Equal(t, "1", *snapshot["Vendor:a"])
	assert.Equal(t, `{"b":2}`, *snapshot["Plain"], "non-JSON content types stay raw")
}

func TestAppConfigSourceSkipsFeatureFlags(t *testing.T) {
	source := &AppConfigSource{Client: &fakeSettingsClient{settings: map[Selector][]Setting{
		{KeyFilter: wildcard}: {
			{Key: "FeatureX", Value: strp(`{"id":"x"}`), ContentType: featureFlagContentType},
			{Key: "Timeout", Value: strp("30")},
		},
	}}}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, snapshot, "FeatureX")
	assert.Equal(t, "30", *snapshot["Timeout"])
}

func TestAppConfigSourceNullValues(t *testing.T) {
	source := &AppConfigSource{Client: &fakeSettingsClient{settings: map[Selector][]Setting{
		{KeyFilter: wildcard}: {
			{Key: "Optional", Value: nil},
		},
	}}}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)

	require.Contains(t, snapshot, "Optional")
	assert.Nil(t, snapshot["Optional"])
}

func secretRefSetting(key, uri string) Setting {
	ref := `{"uri":"` + uri + `"}`
	return Setting{Key: key, Value: &ref, ContentType: secretReferenceContentType}
}

func TestAppConfigSourceResolvesSecretReferences(t *testing.T) {
	var calls atomic.Int64
	source := &AppConfigSource{
		Client: &fakeSettingsClient{settings: map[Selector][]Setting{
			{KeyFilter: wildcard}: {
				secretRefSetting("Database:Password", "https://vault.example/secrets/DbPassword"),
			},
		}},
		SecretResolver: SecretResolverFunc(func(_ context.Context, uri string) (string, error) {
			calls.Add(1)
			assert.Equal(t, "https://vault.example/secrets/DbPassword", uri)
			return "s3cret", nil
		}),
	}

	snapshot, err := source.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s3cret", *snapshot["Database:Password"])

	// Resolved references are cached across loads.
	_, err = source.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())

	// Invalidate drops the cache.
	source.Invalidate()
	_, err = source.Feed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestAppConfigSourceSecretReferenceErrors(t *testing.T) {
	makeSource := func(setting Setting, resolver SecretResolver) *AppConfigSource {
		return &AppConfigSource{
			Client: &fakeSettingsClient{settings: map[Selector][]Setting{
				{KeyFilter: wildcard}: {setting},
			}},
			SecretResolver: resolver,
		}
	}

	// No resolver configured.
	src := makeSource(secretRefSetting("K", "https://vault.example/secrets/S"), nil)
	_, err := src.Feed(context.Background())
	assert.ErrorIs(t, err, ErrNoSecretResolver)

	// Malformed reference document.
	bad := Setting{Key: "K", Value: strp("not json"), ContentType: secretReferenceContentType}
	src = makeSource(bad, SecretResolverFunc(func(context.Context, string) (string, error) {
		return "", nil
	}))
	_, err = src.Feed(context.Background())
	assert.ErrorIs(t, err, ErrInvalidSecretRef)
}

func TestDeduplicateSelectors(t *testing.T) {
	result := deduplicateSelectors([]Selector{
		{KeyFilter: "a"},
		{KeyFilter: "b"},
		{KeyFilter: "a"},
	})
	assert.Equal(t, []Selector{{KeyFilter: "b"}, {KeyFilter: "a"}}, result)

	assert.Equal(t, []Selector{{KeyFilter: wildcard}}, deduplicateSelectors(nil))
}

func TestIsJSONContentType(t *testing.T) {
	assert.True(t, isJSONContentType("application/json"))
	assert.True(t, isJSONContentType("application/json; charset=utf-8"))
	assert.True(t, isJSONContentType("application/vnd.custom+json"))
	assert.True(t, isJSONContentType(" Application/JSON "))
	assert.False(t, isJSONContentType("text/plain"))
	assert.False(t, isJSONContentType(""))
	assert.False(t, isJSONContentType("application/jsonx"))
}
