package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mbolis/quick-fields/model"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithHTTPClient(srv.Client()))
}

func TestResourceCRUD(t *testing.T) {
	require := require.New(t)

	var seen []string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		require.Equal("Bearer tok", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodPost, http.MethodPut:
			var f model.Field
			require.NoError(json.NewDecoder(r.Body).Decode(&f))
			if f.ID == "" {
				f.ID = "new-id"
			}
			json.NewEncoder(w).Encode(f)
		case http.MethodGet:
			if r.URL.Path == FieldsPath {
				json.NewEncoder(w).Encode([]model.Field{{ID: "a"}, {ID: "b"}})
				return
			}
			json.NewEncoder(w).Encode(model.Field{ID: "a", Label: "A"})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	client.SetTokens("tok", "")
	fields := Fields(client)
	ctx := context.Background()

	created, err := fields.Create(ctx, &model.Field{Label: "x"})
	require.NoError(err)
	require.Equal("new-id", created.ID)
	require.Equal("x", created.Label)

	list, err := fields.Query(ctx, url.Values{"parent": {"root"}})
	require.NoError(err)
	require.Len(list, 2)

	got, err := fields.Get(ctx, "a")
	require.NoError(err)
	require.Equal("A", got.Label)

	updated, err := fields.Update(ctx, "a", &model.Field{ID: "a", Label: "B"})
	require.NoError(err)
	require.Equal("B", updated.Label)

	require.NoError(fields.Delete(ctx, "a"))

	require.Equal([]string{
		"POST /api/admin/fields",
		"GET /api/admin/fields?parent=root",
		"GET /api/admin/fields/a",
		"PUT /api/admin/fields/a",
		"DELETE /api/admin/fields/a",
	}, seen)
	require.Zero(client.Errors.Len())
}

func TestStructuredErrorIsRecorded(t *testing.T) {
	require := require.New(t)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error_message": "invalid field",
			"error_code":    2,
			"arguments":     []string{"type: invalid value \"slider\""},
		})
	})

	_, err := Fields(client).Create(context.Background(), &model.Field{})
	var apiErr *model.APIError
	require.True(errors.As(err, &apiErr))
	require.Equal(model.CodeValidation, apiErr.Code)
	require.Equal(http.StatusBadRequest, apiErr.Status)

	recorded := client.Errors.All()
	require.Len(recorded, 1)
	require.Equal("invalid field", recorded[0].Message)

	client.Errors.Clear()
	require.Zero(client.Errors.Len())
}

func TestUnauthenticatedCallsHook(t *testing.T) {
	require := require.New(t)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})

	var hooked *model.APIError
	client.OnUnauthenticated = func(ctx context.Context, err *model.APIError) {
		hooked = err
	}

	err := Fields(client).Delete(context.Background(), "x")
	require.Error(err)
	require.NotNil(hooked)
	require.Equal(model.CodeNotAuthenticated, hooked.Code)
	require.Zero(client.Errors.Len())
}

func TestFailedLoginSkipsHook(t *testing.T) {
	require := require.New(t)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})

	hooked := 0
	client.OnUnauthenticated = func(ctx context.Context, err *model.APIError) {
		hooked++
		client.Login(ctx, "admin", "wrong")
	}

	err := client.Login(context.Background(), "admin", "wrong")
	var apiErr *model.APIError
	require.True(errors.As(err, &apiErr))
	require.Equal(model.CodeNotAuthenticated, apiErr.Code)
	require.Zero(hooked)
	require.Zero(client.Errors.Len())

	client.SetTokens("a", "r")
	require.Error(client.Refresh(context.Background()))
	require.Zero(hooked)

	// a rejected API call reaches the hook once, and its retry does not loop
	require.Error(Fields(client).Delete(context.Background(), "x"))
	require.Equal(1, hooked)
}

func TestUnstructuredErrorGetsCodeFromStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := Fields(client).Get(context.Background(), "gone")
	var apiErr *model.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, model.CodeNotFound, apiErr.Code)
	require.Equal(t, "Not Found", apiErr.Message)
}

func TestLoginAndRefresh(t *testing.T) {
	require := require.New(t)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			user, pass, ok := r.BasicAuth()
			require.True(ok)
			require.Equal("admin", user)
			require.Equal("secret", pass)
			json.NewEncoder(w).Encode(map[string]any{"access_token": "a1", "refresh_token": "r1", "expires_in": 60})
		case "/api/refresh":
			require.Equal("Refresh r1", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{"access_token": "a2", "refresh_token": "r2", "expires_in": 60})
		}
	})
	ctx := context.Background()

	require.Error(client.Refresh(ctx))

	require.NoError(client.Login(ctx, "admin", "secret"))
	access, refresh := client.Tokens()
	require.Equal("a1", access)
	require.Equal("r1", refresh)

	require.NoError(client.Refresh(ctx))
	access, refresh = client.Tokens()
	require.Equal("a2", access)
	require.Equal("r2", refresh)
}
