package services

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"backoffice/internal/core"
)

type fakeLister[T any] struct {
	items []T
	err   error
	calls int
	mu    sync.Mutex
	query url.Values
}

func (f *fakeLister[T]) List(_ context.Context, q url.Values) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return append([]T(nil), f.items...), nil
}

type fakeCostCenters struct {
	centers []core.CostCenter
	err     error
}

func (f fakeCostCenters) CostCenters(context.Context) ([]core.CostCenter, error) {
	return f.centers, f.err
}

// fakeStore records calls to a single collection.
type fakeStore[T any] struct {
	fakeLister[T]
	created []T
	updated []T
	deleted []int64
	get     T
	err     error
}

func (f *fakeStore[T]) Get(context.Context, int64) (T, error) { return f.get, f.err }

func (f *fakeStore[T]) Create(_ context.Context, v T) (T, error) {
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	f.created = append(f.created, v)
	return v, nil
}

func (f *fakeStore[T]) Update(_ context.Context, _ int64, v T) (T, error) {
	if f.err != nil {
		var zero T
		return zero, f.err
	}
	f.updated = append(f.updated, v)
	return v, nil
}

func (f *fakeStore[T]) Delete(_ context.Context, id int64) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

var errBackend = errors.New("backend down")
