package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Resource is the CRUD adapter for one collection path.
//
//	GET    /{path}        (optional query filter)  list of records
//	GET    /{path}/{id}                            single record
//	POST   /{path}        JSON or multipart        created record
//	PUT    /{path}/{id}   JSON or multipart        updated record
//	DELETE /{path}/{id}                            echoed id or empty body
type Resource[T any, K comparable] struct {
	client *Client
	path   string
}

// NewResource binds path to client.
func NewResource[T any, K comparable](client *Client, path string) *Resource[T, K] {
	return &Resource[T, K]{
		client: client,
		path:   "/" + strings.Trim(path, "/"),
	}
}

// Path returns the collection path.
func (r *Resource[T, K]) Path() string { return r.path }

// ItemPath returns the path of one record, optionally followed by suffix
// segments.
func (r *Resource[T, K]) ItemPath(id K, suffix ...string) string {
	parts := append([]string{r.path, url.PathEscape(fmt.Sprint(id))}, suffix...)
	return strings.Join(parts, "/")
}

// List fetches the collection, passing filter as the query string.
func (r *Resource[T, K]) List(ctx context.Context, filter url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := r.client.Do(ctx, http.MethodGet, r.path, filter, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[T](raw)
}

// Get fetches one record.
func (r *Resource[T, K]) Get(ctx context.Context, id K) (T, error) {
	var out T
	err := r.client.Do(ctx, http.MethodGet, r.ItemPath(id), nil, nil, &out)
	return out, err
}

// Create posts payload and returns the stored record.
func (r *Resource[T, K]) Create(ctx context.Context, payload any) (T, error) {
	var out T
	err := r.client.DoRecord(ctx, http.MethodPost, r.path, payload, &out)
	return out, err
}

// Update puts payload to the record and returns the stored result.
func (r *Resource[T, K]) Update(ctx context.Context, id K, payload any) (T, error) {
	var out T
	err := r.client.DoRecord(ctx, http.MethodPut, r.ItemPath(id), payload, &out)
	return out, err
}

// Delete removes one record.
func (r *Resource[T, K]) Delete(ctx context.Context, id K) error {
	return r.client.Do(ctx, http.MethodDelete, r.ItemPath(id), nil, nil, nil)
}

// decodeList accepts a bare array or an object wrapping it under "data" or
// "items".
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, fmt.Errorf("restclient: decode list: %w", err)
		}
		return out, nil
	}
	var wrapped struct {
		Data  []T `json:"data"`
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("restclient: decode list: %w", err)
	}
	if wrapped.Data != nil {
		return wrapped.Data, nil
	}
	if wrapped.Items != nil {
		return wrapped.Items, nil
	}
	return []T{}, nil
}
