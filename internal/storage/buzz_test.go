package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "payload.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func newTestService(t *testing.T, srv *httptest.Server) *BuzzService {
	t.Helper()
	svc := NewBuzzService(BuzzConfig{
		AccountID:      "secret-account",
		APIEndpoint:    srv.URL,
		UploadEndpoint: srv.URL + "/w",
		Logger:         quietLogger(),
	})
	require.NoError(t, svc.ResolveRootDir(context.Background()))
	return svc
}

func rootDirHandler(w http.ResponseWriter) {
	w.Write([]byte(`{"code":200,"data":{"id":"root123"}}`))
}

func TestBuzzUploadSuccess(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fs" {
			rootDirHandler(w)
			return
		}
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/w/root123/final.mkv", r.URL.Path)
		assert.Equal(t, "Bearer secret-account", r.Header.Get("Authorization"))
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"code":201,"data":{"id":"obj789"}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv)
	path := writeTempFile(t, []byte("file contents"))

	size, link, err := svc.Upload(context.Background(), path, "final.mkv", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len("file contents")), size)
	assert.Equal(t, srv.URL+"/obj789", link)
	assert.Equal(t, []byte("file contents"), gotBody)
}

func TestBuzzUploadTransportSuccessWithMalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fs" {
			rootDirHandler(w)
			return
		}
		// 2xx but not a usable payload
		w.Write([]byte("<html>thanks!</html>"))
	}))
	defer srv.Close()

	svc := newTestService(t, srv)
	path := writeTempFile(t, []byte("x"))

	_, _, err := svc.Upload(context.Background(), path, "a.bin", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse upload response")
}

func TestBuzzUploadPayloadMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fs" {
			rootDirHandler(w)
			return
		}
		w.Write([]byte(`{"code":201,"data":{}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv)
	path := writeTempFile(t, []byte("x"))

	_, _, err := svc.Upload(context.Background(), path, "a.bin", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing object id")
}

func TestBuzzUploadTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/fs" {
			rootDirHandler(w)
			return
		}
		http.Error(w, "quota exceeded", http.StatusInsufficientStorage)
	}))
	defer srv.Close()

	svc := newTestService(t, srv)
	path := writeTempFile(t, []byte("x"))

	_, _, err := svc.Upload(context.Background(), path, "a.bin", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "507")
}

func TestResolveRootDirFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"api error code", `{"code":401,"message":"bad token"}`, http.StatusOK},
		{"missing id", `{"code":200,"data":{}}`, http.StatusOK},
		{"invalid json", `not json`, http.StatusOK},
		{"http failure", `{"code":200,"data":{"id":"x"}}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			svc := NewBuzzService(BuzzConfig{
				AccountID:   "acct",
				APIEndpoint: srv.URL,
				Logger:      quietLogger(),
			})
			assert.Error(t, svc.ResolveRootDir(context.Background()))
		})
	}
}

func TestUploadWithoutResolvedRoot(t *testing.T) {
	svc := NewBuzzService(BuzzConfig{AccountID: "acct", Logger: quietLogger()})
	_, _, err := svc.Upload(context.Background(), "nowhere", "a.bin", nil)
	assert.Error(t, err)
}
