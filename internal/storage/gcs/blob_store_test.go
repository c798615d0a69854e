package gcs

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(r *http.Request, status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
		Request:    r,
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *storage.Client {
	t.Helper()
	client, err := storage.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(&http.Client{Transport: rt}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() }) //nolint:errcheck
	return client
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusOK, `{}`), nil
	})
	_, err = New(client, Config{})
	require.ErrorContains(t, err, "bucket name")
}

func TestCheckBucket(t *testing.T) {
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		assert.Contains(t, r.URL.Path, "/storage/v1/b/profiles")
		return jsonResponse(r, http.StatusOK, `{"name":"profiles"}`), nil
	})
	store, err := New(client, Config{Bucket: "profiles"})
	require.NoError(t, err)
	require.NoError(t, store.Check(context.Background()))

	missing := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		return jsonResponse(r, http.StatusNotFound, `{"error":{"code":404,"message":"not found"}}`), nil
	})
	store, err = New(missing, Config{Bucket: "profiles"})
	require.NoError(t, err)
	require.ErrorContains(t, store.Check(context.Background()), "attributes")
}

func TestPutObjectUploads(t *testing.T) {
	var (
		mu       sync.Mutex
		uploaded string
	)
	client := newTestClient(t, func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		uploaded = string(body)
		mu.Unlock()
		return jsonResponse(r, http.StatusOK, `{"name":"descriptions/run-1/7.txt","bucket":"profiles"}`), nil
	})
	store, err := New(client, Config{Bucket: "profiles"})
	require.NoError(t, err)

	uri, err := store.PutObject(context.Background(), "descriptions/run-1/7.txt", "text/plain", strings.NewReader("Acme builds rockets"))
	require.NoError(t, err)
	assert.Equal(t, "gs://profiles/descriptions/run-1/7.txt", uri)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, uploaded, "Acme builds rockets")

	_, err = store.PutObject(context.Background(), " ", "", strings.NewReader("x"))
	require.Error(t, err)
	require.NoError(t, store.Close())
}
