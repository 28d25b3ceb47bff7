package sauce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateJob(t *testing.T) {
	var (
		gotMethod, gotPath, gotUser, gotKey string
		gotBody                             map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotUser, gotKey, _ = r.BasicAuth()
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/rest/v1/", "alice", "secret")
	err := client.UpdateJob(context.Background(), "sess-1", JobUpdate{Name: "includes lazy", Passed: false})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/rest/v1/alice/jobs/sess-1", gotPath)
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "includes lazy", gotBody["name"])
	assert.Equal(t, false, gotBody["passed"])
}

func TestUpdateJob_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not authorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "alice", "wrong")
	err := client.UpdateJob(context.Background(), "sess-1", JobUpdate{Name: "x", Passed: true})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "not authorized", apiErr.Body)
}

func TestUpdateJob_EmptyID(t *testing.T) {
	client := NewClient("", "alice", "secret")
	assert.Equal(t, DefaultAPIURL, client.BaseURL)

	err := client.UpdateJob(context.Background(), "", JobUpdate{})
	require.Error(t, err)
}

func TestUpdateJob_CanceledContext(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "alice", "secret")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.UpdateJob(ctx, "sess-1", JobUpdate{Name: "x"})
	require.Error(t, err)
}
