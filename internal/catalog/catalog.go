// Package catalog serves the registerable offerings: technical events,
// online events and workshops.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

// ErrNotFound is returned for an unknown category/id pair.
var ErrNotFound = errors.New("catalog entry not found")

// Store is the persistent catalog.
type Store interface {
	List(ctx context.Context, category model.Category) ([]model.CatalogEntry, error)
}

// Seed returns the embedded catalog.
func Seed() ([]model.CatalogEntry, error) {
	return Parse(bytes.NewReader(seedYAML))
}

// Parse decodes a YAML catalog and normalises every entry.
func Parse(r io.Reader) ([]model.CatalogEntry, error) {
	var entries []model.CatalogEntry
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		if !e.Category.Valid() {
			return nil, fmt.Errorf("catalog entry %q: unknown category %q", e.Title, e.Category)
		}
		if e.ID == "" || e.Title == "" {
			return nil, fmt.Errorf("catalog entry %d: id and title are required", i)
		}
		key := string(e.Category) + "/" + e.ID
		if seen[key] {
			return nil, fmt.Errorf("catalog entry %s: duplicate id", key)
		}
		seen[key] = true
		e.Normalize()
	}
	return entries, nil
}

// Provider reads the catalog through a TTL cache. While the store holds no
// entries it serves the embedded seed list.
type Provider struct {
	store    Store
	cache    *gocache.Cache
	fallback []model.CatalogEntry
}

// NewProvider constructs a Provider caching store reads for ttl.
func NewProvider(store Store, ttl time.Duration) (*Provider, error) {
	fallback, err := Seed()
	if err != nil {
		return nil, err
	}
	return &Provider{
		store:    store,
		cache:    gocache.New(ttl, 2*ttl),
		fallback: fallback,
	}, nil
}

// List returns the entries of category, or all entries when it is empty.
func (p *Provider) List(ctx context.Context, category model.Category) ([]model.CatalogEntry, error) {
	key := "list:" + string(category)
	if v, ok := p.cache.Get(key); ok {
		return v.([]model.CatalogEntry), nil
	}

	entries, err := p.store.List(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	if len(entries) == 0 {
		slog.Debug("catalog store empty, serving seed list", "category", category)
		entries = filter(p.fallback, category)
	}
	p.cache.SetDefault(key, entries)
	return entries, nil
}

// Get returns one entry. Ids are only unique within a category, so an
// unknown or empty category never matches.
func (p *Provider) Get(ctx context.Context, category model.Category, id string) (model.CatalogEntry, error) {
	if !category.Valid() {
		return model.CatalogEntry{}, ErrNotFound
	}
	entries, err := p.List(ctx, category)
	if err != nil {
		return model.CatalogEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return model.CatalogEntry{}, ErrNotFound
}

// FindByTitle looks an entry up by its display title. Registrations
// reference entries by title, so this is how stored rows find their
// current catalog price.
func (p *Provider) FindByTitle(ctx context.Context, title string) (model.CatalogEntry, bool) {
	entries, err := p.List(ctx, "")
	if err != nil {
		slog.Warn("catalog lookup by title failed", "title", title, "error", err)
		return model.CatalogEntry{}, false
	}
	for _, e := range entries {
		if e.Title == title {
			return e, true
		}
	}
	return model.CatalogEntry{}, false
}

// Invalidate drops cached reads, e.g. after a reseed.
func (p *Provider) Invalidate() {
	p.cache.Flush()
}

func filter(entries []model.CatalogEntry, category model.Category) []model.CatalogEntry {
	if category == "" {
		return entries
	}
	var out []model.CatalogEntry
	for _, e := range entries {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}
