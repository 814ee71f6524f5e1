package storage

import (
	"context"
	"sort"

	"github.com/strapi/strapi-sub004/internal/domain/content"
	"github.com/strapi/strapi-sub004/internal/ports"
)

// GetEntry loads one entry, or ports.ErrEntryNotFound.
func (db *DB) GetEntry(ctx context.Context, key content.EntryKey) (content.Entry, error) {
	var out content.Entry
	err := db.read(ctx, func(d *dataset) error {
		e, ok := d.Entries[key.String()]
		if !ok {
			return ports.ErrEntryNotFound
		}
		out = e.Clone()
		return nil
	})
	return out, err
}

// PutEntry inserts or replaces an entry.
func (db *DB) PutEntry(ctx context.Context, e content.Entry) error {
	return db.write(ctx, func(d *dataset) error {
		d.Entries[e.Key().String()] = e.Clone()
		return nil
	})
}

// DeleteEntry removes an entry, or returns ports.ErrEntryNotFound.
func (db *DB) DeleteEntry(ctx context.Context, key content.EntryKey) error {
	return db.write(ctx, func(d *dataset) error {
		if _, ok := d.Entries[key.String()]; !ok {
			return ports.ErrEntryNotFound
		}
		delete(d.Entries, key.String())
		return nil
	})
}

// ListEntries returns the entries of a content type (all types when empty),
// ordered by document id then locale.
func (db *DB) ListEntries(ctx context.Context, contentType string) ([]content.Entry, error) {
	out := make([]content.Entry, 0)
	err := db.read(ctx, func(d *dataset) error {
		for _, e := range d.Entries {
			if contentType != "" && e.ContentType != contentType {
				continue
			}
			out = append(out, e.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContentType != out[j].ContentType {
			return out[i].ContentType < out[j].ContentType
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Locale < out[j].Locale
	})
	return out, err
}
