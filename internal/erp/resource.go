package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// Resource is a REST collection on the ERP. W is the wire record and T the
// core value it maps to.
type Resource[W any, T any] struct {
	client *Client
	path   string
	toCore func(W) T
	toWire func(T) W
}

func newResource[W any, T any](c *Client, path string, toCore func(W) T, toWire func(T) W) *Resource[W, T] {
	return &Resource[W, T]{client: c, path: path, toCore: toCore, toWire: toWire}
}

// Path is the collection path, e.g. "/api/projects".
func (r *Resource[W, T]) Path() string { return r.path }

// List returns every record matching query.
func (r *Resource[W, T]) List(ctx context.Context, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := r.client.Get(ctx, r.path, query, &raw); err != nil {
		return nil, err
	}
	var wires []W
	if err := decodeList(raw, &wires); err != nil {
		return nil, fmt.Errorf("%s: %w", r.path, err)
	}
	out := make([]T, 0, len(wires))
	for _, w := range wires {
		out = append(out, r.toCore(w))
	}
	return out, nil
}

func (r *Resource[W, T]) Get(ctx context.Context, id int64) (T, error) {
	var w W
	if err := r.client.Get(ctx, itemPath(r.path, id), nil, &w); err != nil {
		var zero T
		return zero, err
	}
	return r.toCore(w), nil
}

// Create posts v and returns the record as stored by the ERP.
func (r *Resource[W, T]) Create(ctx context.Context, v T) (T, error) {
	var w W
	if err := r.client.Post(ctx, r.path, r.toWire(v), &w); err != nil {
		var zero T
		return zero, err
	}
	return r.toCore(w), nil
}

func (r *Resource[W, T]) Update(ctx context.Context, id int64, v T) (T, error) {
	var w W
	if err := r.client.Put(ctx, itemPath(r.path, id), r.toWire(v), &w); err != nil {
		var zero T
		return zero, err
	}
	return r.toCore(w), nil
}

func (r *Resource[W, T]) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, itemPath(r.path, id))
}
