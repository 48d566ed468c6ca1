package emulator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// KeyVault emulates the Key Vault secrets REST surface: listing secret
// properties and fetching individual secret values.
type KeyVault struct {
	Failures Failures

	mu      sync.RWMutex
	secrets map[string]string
	server  *httptest.Server
}

// NewKeyVault starts a Key Vault emulator with the given initial secrets.
// Call Close when done.
func NewKeyVault(secrets map[string]string) *KeyVault {
	kv := &KeyVault{secrets: make(map[string]string, len(secrets))}
	for name, value := range secrets {
		kv.secrets[name] = value
	}

	r := chi.NewRouter()
	r.Use(kv.Failures.middleware)
	r.Get("/secrets", kv.listSecrets)
	r.Get("/secrets/{name}", kv.getSecret)
	r.Get("/secrets/{name}/{version}", kv.getSecret)

	kv.server = httptest.NewServer(r)
	return kv
}

// Endpoint returns the emulator's base URL.
func (kv *KeyVault) Endpoint() string { return kv.server.URL }

// Close shuts the emulator down.
func (kv *KeyVault) Close() { kv.server.Close() }

// SetSecret creates or updates a secret.
func (kv *KeyVault) SetSecret(name, value string) {
	kv.mu.Lock()
	kv.secrets[name] = value
	kv.mu.Unlock()
}

// DeleteSecret removes a secret.
func (kv *KeyVault) DeleteSecret(name string) {
	kv.mu.Lock()
	delete(kv.secrets, name)
	kv.mu.Unlock()
}

func (kv *KeyVault) listSecrets(w http.ResponseWriter, r *http.Request) {
	kv.mu.RLock()
	names := make([]string, 0, len(kv.secrets))
	for name := range kv.secrets {
		names = append(names, name)
	}
	kv.mu.RUnlock()
	sort.Strings(names)

	type item struct {
		ID string `json:"id"`
	}
	items := make([]item, 0, len(names))
	for _, name := range names {
		items = append(items, item{ID: kv.server.URL + "/secrets/" + name})
	}
	writeJSON(w, map[string]any{"value": items})
}

func (kv *KeyVault) getSecret(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	kv.mu.RLock()
	value, ok := kv.secrets[name]
	kv.mu.RUnlock()
	if !ok {
		http.Error(w, `{"error":{"code":"SecretNotFound"}}`, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"id":    kv.server.URL + "/secrets/" + name,
		"value": value,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
