// Package registry resolves whether an installed extension corresponds to a
// public package in the wordpress.org directory. Injected as a capability so
// the engine never needs a live network to be tested.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound means the identifier has no public registry entry.
var ErrNotFound = errors.New("no public registry entry")

// Lookup resolves an extension identifier to its public registry slug.
type Lookup interface {
	// ResolvePublicSlug returns the registry slug for the identifier, or
	// ErrNotFound when the extension is not publicly distributed.
	ResolvePublicSlug(ctx context.Context, identifier string) (string, error)
}

const (
	pluginInfoURL = "https://api.wordpress.org/plugins/info/1.2/"
	themeInfoURL  = "https://api.wordpress.org/themes/info/1.2/"
)

// WordPressOrg queries the wordpress.org info API for one extension kind.
type WordPressOrg struct {
	client *resty.Client
	url    string
	action string
}

func NewPluginLookup() *WordPressOrg {
	return &WordPressOrg{client: newClient(), url: pluginInfoURL, action: "plugin_information"}
}

func NewThemeLookup() *WordPressOrg {
	return &WordPressOrg{client: newClient(), url: themeInfoURL, action: "theme_information"}
}

func newClient() *resty.Client {
	return resty.New().SetTimeout(15 * time.Second)
}

type infoResponse struct {
	Slug  string `json:"slug"`
	Error string `json:"error"`
}

func (w *WordPressOrg) ResolvePublicSlug(ctx context.Context, identifier string) (string, error) {
	var out infoResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("action", w.action).
		SetQueryParam("request[slug]", identifier).
		SetResult(&out).
		Get(w.url)
	if err != nil {
		return "", fmt.Errorf("registry lookup %s: %w", identifier, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("registry lookup %s: unexpected status %s", identifier, resp.Status())
	}
	if out.Error != "" || out.Slug == "" {
		return "", ErrNotFound
	}
	return out.Slug, nil
}
