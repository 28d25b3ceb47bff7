package fixtures

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var site = fstest.MapFS{
	"basic/index.html":     {Data: []byte(`<h-include src="include-1.html" id="included-1"></h-include>`)},
	"basic/include-1.html": {Data: []byte(`this text is included`)},
	"none/index.html":      {Data: []byte(`<p id="a">1st para</p>`)},
	"media/small.html":     {Data: []byte(`Small viewport`)},
	"media/large.html":     {Data: []byte(`Large viewport`)},
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHandler_ServesFixtureIndex(t *testing.T) {
	var logs bytes.Buffer
	h := NewHandler(site, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	rec := get(t, h, "/static/basic/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="included-1"`)
	assert.Contains(t, logs.String(), "path=/static/basic/")
	assert.Contains(t, logs.String(), "status=200")
}

func TestHandler_ServesFragments(t *testing.T) {
	h := NewHandler(site, nil)

	rec := get(t, h, "/static/basic/include-1.html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "this text is included", rec.Body.String())
}

func TestHandler_DirectoryListing(t *testing.T) {
	h := NewHandler(site, nil)

	rec := get(t, h, "/static/media/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "small.html")
	assert.Contains(t, rec.Body.String(), "large.html")
}

func TestHandler_NotFound(t *testing.T) {
	h := NewHandler(site, nil)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/static/missing/").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/elsewhere").Code)
}

func TestHandler_HealthAndRootRedirect(t *testing.T) {
	h := NewHandler(site, nil)

	rec := get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = get(t, h, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/static/", rec.Header().Get("Location"))
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	l.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, addr, NewHandler(site, nil)) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "ok"
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
