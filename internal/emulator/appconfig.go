package emulator

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	secretRefContentType   = "application/vnd.microsoft.appconfig.keyvaultref+json;charset=utf-8"
	featureFlagContentType = "application/vnd.microsoft.appconfig.ff+json;charset=utf-8"
)

// Setting is one emulated App Configuration key-value. A nil Value is a
// null setting.
type Setting struct {
	Key         string  `json:"key"`
	Label       string  `json:"label,omitempty"`
	Value       *string `json:"value"`
	ContentType string  `json:"content_type,omitempty"`
	ETag        string  `json:"etag"`
}

type settingID struct {
	key   string
	label string
}

// AppConfig emulates the App Configuration REST surface: listing key-values
// with key and label filters, and fetching individual settings with ETags.
type AppConfig struct {
	Failures Failures

	mu       sync.RWMutex
	settings map[settingID]Setting
	server   *httptest.Server
}

// NewAppConfig starts an App Configuration emulator. Call Close when done.
func NewAppConfig() *AppConfig {
	ac := &AppConfig{settings: make(map[settingID]Setting)}

	r := chi.NewRouter()
	r.Use(ac.Failures.middleware)
	r.Get("/kv", ac.listSettings)
	r.Get("/kv/{key}", ac.getSetting)

	ac.server = httptest.NewServer(r)
	return ac
}

// Endpoint returns the emulator's base URL.
func (ac *AppConfig) Endpoint() string { return ac.server.URL }

// Close shuts the emulator down.
func (ac *AppConfig) Close() { ac.server.Close() }

// Set creates or updates a setting and assigns a fresh ETag.
func (ac *AppConfig) Set(key, label, value, contentType string) {
	ac.put(key, label, &value, contentType)
}

// SetNull stores a setting with a null value.
func (ac *AppConfig) SetNull(key, label string) {
	ac.put(key, label, nil, "")
}

// SetSecretReference stores a Key Vault reference pointing at secretURI.
func (ac *AppConfig) SetSecretReference(key, label, secretURI string) {
	ref := fmt.Sprintf(`{"uri":%q}`, secretURI)
	ac.put(key, label, &ref, secretRefContentType)
}

// SetFeatureFlag stores a feature flag setting.
func (ac *AppConfig) SetFeatureFlag(key, label, document string) {
	ac.put(key, label, &document, featureFlagContentType)
}

// Delete removes a setting.
func (ac *AppConfig) Delete(key, label string) {
	ac.mu.Lock()
	delete(ac.settings, settingID{key: key, label: label})
	ac.mu.Unlock()
}

func (ac *AppConfig) put(key, label string, value *string, contentType string) {
	ac.mu.Lock()
	ac.settings[settingID{key: key, label: label}] = Setting{
		Key:         key,
		Label:       label,
		Value:       value,
		ContentType: contentType,
		ETag:        uuid.NewString(),
	}
	ac.mu.Unlock()
}

func (ac *AppConfig) listSettings(w http.ResponseWriter, r *http.Request) {
	keyFilter := r.URL.Query().Get("key")
	labelFilter := r.URL.Query().Get("label")

	ac.mu.RLock()
	items := make([]Setting, 0, len(ac.settings))
	for id, setting := range ac.settings {
		if !matchFilter(id.key, keyFilter) {
			continue
		}
		if !matchLabel(id.label, labelFilter) {
			continue
		}
		items = append(items, setting)
	}
	ac.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if items[i].Key != items[j].Key {
			return items[i].Key < items[j].Key
		}
		return items[i].Label < items[j].Label
	})
	writeJSON(w, map[string]any{"items": items})
}

func (ac *AppConfig) getSetting(w http.ResponseWriter, r *http.Request) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		http.Error(w, `{"error":{"code":"InvalidKey"}}`, http.StatusBadRequest)
		return
	}
	label := r.URL.Query().Get("label")

	ac.mu.RLock()
	setting, ok := ac.settings[settingID{key: key, label: label}]
	ac.mu.RUnlock()
	if !ok {
		http.Error(w, `{"error":{"code":"KeyNotFound"}}`, http.StatusNotFound)
		return
	}
	writeJSON(w, setting)
}

// matchFilter matches a key against a filter that is empty or "*" for all
// keys, or ends with "*" for prefix matching.
func matchFilter(key, filter string) bool {
	switch {
	case filter == "" || filter == "*":
		return true
	case strings.HasSuffix(filter, "*"):
		return strings.HasPrefix(key, strings.TrimSuffix(filter, "*"))
	default:
		return key == filter
	}
}

// matchLabel matches a label. An empty or "\x00" filter selects unlabeled
// settings; "*" selects all.
func matchLabel(label, filter string) bool {
	switch filter {
	case "", "\x00":
		return label == ""
	case "*":
		return true
	default:
		return label == filter
	}
}
