package resource

import (
	"context"
	"net/http"
	"net/url"
)

// Resource is a REST collection of T rooted at path: POST and GET on the
// collection, GET, PUT and DELETE on path/{id}.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

func (r *Resource[T]) Create(ctx context.Context, v *T) (*T, error) {
	out := new(T)
	if err := r.client.do(ctx, http.MethodPost, r.path, v, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Query(ctx context.Context, params url.Values) ([]*T, error) {
	path := r.path
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var out []*T
	if err := r.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	out := new(T)
	if err := r.client.do(ctx, http.MethodGet, r.path+"/"+escape(id), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Update(ctx context.Context, id string, v *T) (*T, error) {
	out := new(T)
	if err := r.client.do(ctx, http.MethodPut, r.path+"/"+escape(id), v, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.path+"/"+escape(id), nil, nil)
}
