package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starlance/firecontrol/pkg/core"
)

// archive is a fake archive server remembering the last upload.
type archive struct {
	status int
	fields map[string]string
	file   string
}

func (a *archive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/healthcheck":
		w.WriteHeader(a.status)
	case r.Method == http.MethodPost && r.URL.Path == UploadPath:
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		a.fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			a.fields[k] = v[0]
		}
		if f, _, err := r.FormFile("file"); err == nil {
			b, _ := io.ReadAll(f)
			f.Close()
			a.file = string(b)
		}
		w.WriteHeader(a.status)
	default:
		http.NotFound(w, r)
	}
}

func serve(t *testing.T, status int) (*archive, *Client) {
	t.Helper()
	a := &archive{status: status}
	srv := httptest.NewServer(a)
	t.Cleanup(srv.Close)
	return a, New(srv.URL+"/", "s3cret")
}

func recording(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firecontrol_20260301_120000.db")
	if err := os.WriteFile(path, []byte("sqlite bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_TrimsSlash(t *testing.T) {
	c := New("http://archive:5000/", "k")
	if c.baseURL != "http://archive:5000" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.httpClient == nil || c.httpClient.Timeout == 0 {
		t.Error("expected an http client with a timeout")
	}
}

func TestHealthcheck(t *testing.T) {
	for _, tc := range []struct {
		status  int
		wantErr bool
	}{
		{http.StatusOK, false},
		{http.StatusServiceUnavailable, true},
	} {
		_, c := serve(t, tc.status)
		err := c.Healthcheck(context.Background())
		if (err != nil) != tc.wantErr {
			t.Errorf("status %d: err = %v", tc.status, err)
		}
	}
}

func TestHealthcheck_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := New(url, "").Healthcheck(context.Background()); err == nil {
		t.Error("expected an error for a closed server")
	}
}

func TestUpload(t *testing.T) {
	a, c := serve(t, http.StatusCreated)

	err := c.Upload(context.Background(), recording(t), core.UploadMetadata{
		SessionName: "duel at noon",
		Scenario:    "duel",
		Duration:    90500 * time.Millisecond,
		Tag:         "Op",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	want := map[string]string{
		"secret":      "s3cret",
		"filename":    "firecontrol_20260301_120000.db",
		"sessionName": "duel at noon",
		"scenario":    "duel",
		"duration":    "90.500",
		"tag":         "Op",
	}
	for k, v := range want {
		if a.fields[k] != v {
			t.Errorf("%s = %q, want %q", k, a.fields[k], v)
		}
	}
	if a.file != "sqlite bytes" {
		t.Errorf("file = %q", a.file)
	}
}

func TestUpload_Rejected(t *testing.T) {
	_, c := serve(t, http.StatusForbidden)

	if err := c.Upload(context.Background(), recording(t), core.UploadMetadata{}); err == nil {
		t.Error("expected an error for 403")
	}
}

func TestUpload_MissingFile(t *testing.T) {
	_, c := serve(t, http.StatusOK)

	if err := c.Upload(context.Background(), filepath.Join(t.TempDir(), "gone.db"), core.UploadMetadata{}); err == nil {
		t.Error("expected an error for a missing file")
	}
}
