package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// DefaultCredential returns the ambient Azure credential chain (environment,
// managed identity, CLI).
func DefaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("acquire default credential: %w", err)
	}
	return cred, nil
}

// sdkSettingsClient adapts the Azure SDK App Configuration client to the
// SettingsClient interface.
type sdkSettingsClient struct {
	client *azappconfig.Client
}

// NewSettingsClient creates a SettingsClient for the given App Configuration
// endpoint.
func NewSettingsClient(endpoint string, credential azcore.TokenCredential) (SettingsClient, error) {
	client, err := azappconfig.NewClient(endpoint, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create app configuration client: %w", err)
	}
	return &sdkSettingsClient{client: client}, nil
}

// NewSettingsClientFromConnectionString creates a SettingsClient from a
// connection string.
func NewSettingsClientFromConnectionString(connectionString string) (SettingsClient, error) {
	client, err := azappconfig.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create app configuration client: %w", err)
	}
	return &sdkSettingsClient{client: client}, nil
}

func (c *sdkSettingsClient) ListSettings(ctx context.Context, selector Selector) ([]Setting, error) {
	labelFilter := selector.LabelFilter
	if labelFilter == "" {
		labelFilter = noLabel
	}
	sdkSelector := azappconfig.SettingSelector{
		KeyFilter:   to.Ptr(selector.KeyFilter),
		LabelFilter: to.Ptr(labelFilter),
		Fields:      azappconfig.AllSettingFields(),
	}

	var settings []Setting
	pager := c.client.NewListSettingsPager(sdkSelector, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list settings: %w", err)
		}
		for _, s := range page.Settings {
			settings = append(settings, fromSDKSetting(s.Key, s.Label, s.Value, s.ContentType, s.ETag))
		}
	}
	return settings, nil
}

func (c *sdkSettingsClient) GetSetting(ctx context.Context, key, label string) (Setting, error) {
	var options *azappconfig.GetSettingOptions
	if label != "" {
		options = &azappconfig.GetSettingOptions{Label: to.Ptr(label)}
	}
	resp, err := c.client.GetSetting(ctx, key, options)
	if err != nil {
		return Setting{}, fmt.Errorf("get setting %s: %w", key, err)
	}
	return fromSDKSetting(resp.Key, resp.Label, resp.Value, resp.ContentType, resp.ETag), nil
}

func fromSDKSetting(key, label, value, contentType *string, etag *azcore.ETag) Setting {
	s := Setting{Value: value}
	if key != nil {
		s.Key = *key
	}
	if label != nil {
		s.Label = *label
	}
	if contentType != nil {
		s.ContentType = *contentType
	}
	if etag != nil {
		s.ETag = string(*etag)
	}
	return s
}

// sdkSecretsClient adapts the Azure SDK Key Vault secrets client to the
// SecretsClient interface.
type sdkSecretsClient struct {
	client *azsecrets.Client
}

// NewSecretsClient creates a SecretsClient for the given vault URL.
func NewSecretsClient(vaultURL string, credential azcore.TokenCredential) (SecretsClient, error) {
	client, err := azsecrets.NewClient(vaultURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create key vault secret client: %w", err)
	}
	return &sdkSecretsClient{client: client}, nil
}

func (c *sdkSecretsClient) ListSecretNames(ctx context.Context) ([]string, error) {
	var names []string
	pager := c.client.NewListSecretPropertiesPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list secrets: %w", err)
		}
		for _, item := range page.Value {
			if item == nil || item.ID == nil {
				continue
			}
			names = append(names, item.ID.Name())
		}
	}
	return names, nil
}

func (c *sdkSecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	resp, err := c.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", name, err)
	}
	if resp.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrSecretValueNil, name)
	}
	return *resp.Value, nil
}
