package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/MrEthical07/goSession/transport"
)

// Page is one page of a collection. Unpaginated endpoints fill Results and
// set Count to its length.
type Page[T any] struct {
	Count    int    `json:"count"`
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
	Results  []T    `json:"results"`
}

// Resource is the standard list/get/create/update/patch/delete surface of a
// collection rooted at Base.
type Resource[T any] struct {
	doer transport.Doer
	Base string
}

// NewResource returns a resource for the collection at base, e.g. "/auth/roles/".
func NewResource[T any](doer transport.Doer, base string) *Resource[T] {
	return &Resource[T]{doer: doer, Base: base}
}

func (r *Resource[T]) List(ctx context.Context, query url.Values) (Page[T], error) {
	var raw json.RawMessage
	if err := call(ctx, r.doer, get(r.Base, query), &raw); err != nil {
		return Page[T]{}, err
	}
	return decodeList[T](raw)
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := call(ctx, r.doer, get(item(r.Base, id), nil), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[T]) Create(ctx context.Context, body any) (*T, error) {
	return r.send(ctx, transport.NewRequest(http.MethodPost, r.Base, body))
}

// Update replaces the item with PUT.
func (r *Resource[T]) Update(ctx context.Context, id int64, body any) (*T, error) {
	return r.send(ctx, transport.NewRequest(http.MethodPut, item(r.Base, id), body))
}

// Patch changes only the fields present in body.
func (r *Resource[T]) Patch(ctx context.Context, id int64, body any) (*T, error) {
	return r.send(ctx, transport.NewRequest(http.MethodPatch, item(r.Base, id), body))
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return call(ctx, r.doer, transport.NewRequest(http.MethodDelete, item(r.Base, id), nil), nil)
}

func (r *Resource[T]) send(ctx context.Context, req *transport.Request) (*T, error) {
	var out T
	if err := call(ctx, r.doer, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
