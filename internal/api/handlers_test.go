// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/tomtom215/capturehub/internal/blobstore"
	"github.com/tomtom215/capturehub/internal/catalog"
	"github.com/tomtom215/capturehub/internal/logging"
	"github.com/tomtom215/capturehub/internal/models"
	ws "github.com/tomtom215/capturehub/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

var errDiskFull = errors.New("disk full")

// togglePersister wraps a FilePersister and fails saves while failing is set.
type togglePersister struct {
	*catalog.FilePersister
	mu      sync.Mutex
	failing bool
}

func (p *togglePersister) Save(ctx context.Context, snap *catalog.Snapshot) error {
	p.mu.Lock()
	failing := p.failing
	p.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return p.FilePersister.Save(ctx, snap)
}

func (p *togglePersister) setFailing(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failing = v
}

type staticSession struct {
	status models.SessionStatus
}

func (s staticSession) SessionStatus() models.SessionStatus { return s.status }

type apiFixture struct {
	server    *httptest.Server
	catalog   *catalog.Catalog
	blobs     *blobstore.Store
	persister *togglePersister
}

func newAPIFixture(t *testing.T, session SessionStatusProvider, mw *ChiMiddlewareConfig) *apiFixture {
	t.Helper()

	blobs := blobstore.New(afero.NewMemMapFs())
	persister := &togglePersister{FilePersister: catalog.NewFilePersister(afero.NewMemMapFs())}
	hub := ws.NewHub()
	cat, err := catalog.Open(context.Background(), persister, blobs, hub)
	if err != nil {
		t.Fatalf("catalog.Open() error = %v", err)
	}

	if mw == nil {
		mw = DefaultChiMiddlewareConfig()
		mw.RateLimitDisabled = true
	}

	handler := NewHandler(cat, hub, session, HandlerConfig{Version: "test"})
	router := NewRouter(handler, RouterConfig{
		Middleware: mw,
		Files:      blobs.HTTPFileSystem(),
	})

	server := httptest.NewServer(router.SetupChi())
	t.Cleanup(server.Close)

	return &apiFixture{server: server, catalog: cat, blobs: blobs, persister: persister}
}

// addMedia stores a binary and catalogs it, as the ingestion pipeline does.
func (f *apiFixture) addMedia(t *testing.T, id, file string) *models.MediaEntry {
	t.Helper()

	if err := f.blobs.Write(file, []byte("binary:"+id)); err != nil {
		t.Fatalf("blobs.Write(%q) error = %v", file, err)
	}
	entry := &models.MediaEntry{
		ID:         id,
		Kind:       models.MediaKindImage,
		URL:        "/files/" + file,
		File:       file,
		Sender:     "111@s.whatsapp.net",
		CapturedAt: time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}
	if err := f.catalog.Insert(context.Background(), entry); err != nil {
		t.Fatalf("catalog.Insert() error = %v", err)
	}
	return entry
}

func (f *apiFixture) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body error = %v", err)
	}
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return v
}

func errorMessage(t *testing.T, data []byte) string {
	t.Helper()
	return decode[models.ErrorResponse](t, data).Error
}

func TestListMedia_EmptyCatalogReturnsEmptyArray(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	status, body := f.do(t, http.MethodGet, "/media", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("body = %s, want []", body)
	}

	status, body = f.do(t, http.MethodGet, "/albums", "")
	if status != http.StatusOK || strings.TrimSpace(string(body)) != "{}" {
		t.Errorf("GET /albums = %d %s, want 200 {}", status, body)
	}
}

func TestCatalogLifecycle(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	entry := f.addMedia(t, "m1", "1760520600000000000.jpg")

	status, body := f.do(t, http.MethodGet, "/media", "")
	if status != http.StatusOK {
		t.Fatalf("GET /media status = %d", status)
	}
	list := decode[[]models.MediaEntry](t, body)
	if len(list) != 1 || list[0].ID != entry.ID || list[0].Album != nil {
		t.Fatalf("GET /media = %+v, want one unassigned entry", list)
	}
	if !strings.Contains(string(body), `"type":"image"`) || !strings.Contains(string(body), `"album":null`) {
		t.Errorf("GET /media body = %s, want type and null album fields", body)
	}

	status, body = f.do(t, http.MethodPost, "/album", `{"name":"trip"}`)
	if status != http.StatusOK {
		t.Fatalf("POST /album status = %d body = %s", status, body)
	}
	created := decode[models.AlbumsResponse](t, body)
	if !created.Success || created.Albums["trip"] == nil || len(created.Albums["trip"]) != 0 {
		t.Fatalf("POST /album = %+v, want empty trip album", created)
	}

	status, body = f.do(t, http.MethodPost, "/media/m1/album", `{"album":"trip"}`)
	if status != http.StatusOK {
		t.Fatalf("POST /media/m1/album status = %d body = %s", status, body)
	}
	assigned := decode[models.MediaResponse](t, body)
	if !assigned.Success || assigned.Media.AlbumName() != "trip" {
		t.Fatalf("assign = %+v, want album trip", assigned)
	}

	status, body = f.do(t, http.MethodGet, "/albums", "")
	albums := decode[models.Albums](t, body)
	if status != http.StatusOK || !albums.Contains("trip", "m1") {
		t.Fatalf("GET /albums = %d %v, want trip containing m1", status, albums)
	}

	status, body = f.do(t, http.MethodDelete, "/media/m1", "")
	if status != http.StatusOK {
		t.Fatalf("DELETE /media/m1 status = %d body = %s", status, body)
	}
	if !decode[models.SuccessResponse](t, body).Success {
		t.Errorf("DELETE body = %s, want success", body)
	}

	if f.catalog.Len() != 0 {
		t.Errorf("catalog.Len() = %d, want 0", f.catalog.Len())
	}
	if ok, _ := f.blobs.Exists(entry.File); ok {
		t.Error("binary still exists after delete")
	}
	if got := f.catalog.ListAlbums()["trip"]; len(got) != 0 {
		t.Errorf("trip members = %v, want empty", got)
	}
}

func TestGetMedia(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.addMedia(t, "m1", "a.jpg")

	status, body := f.do(t, http.MethodGet, "/media/m1", "")
	if status != http.StatusOK || decode[models.MediaEntry](t, body).ID != "m1" {
		t.Errorf("GET /media/m1 = %d %s", status, body)
	}

	status, body = f.do(t, http.MethodGet, "/media/missing", "")
	if status != http.StatusNotFound || errorMessage(t, body) != "media not found" {
		t.Errorf("GET /media/missing = %d %s, want 404 media not found", status, body)
	}
}

func TestDeleteMedia_NotFound(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	status, body := f.do(t, http.MethodDelete, "/media/nope", "")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if got := errorMessage(t, body); got != "media not found" {
		t.Errorf("error = %q, want media not found", got)
	}
}

func TestDeleteMedia_PersistenceFailureLeavesEntry(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	entry := f.addMedia(t, "m1", "a.jpg")
	f.persister.setFailing(true)

	status, body := f.do(t, http.MethodDelete, "/media/m1", "")
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", status)
	}
	if got := errorMessage(t, body); strings.Contains(got, errDiskFull.Error()) {
		t.Errorf("error %q leaks internal cause", got)
	}

	if _, err := f.catalog.Get("m1"); err != nil {
		t.Errorf("entry removed despite persistence failure: %v", err)
	}
	if ok, _ := f.blobs.Exists(entry.File); !ok {
		t.Error("binary removed despite persistence failure")
	}
}

func TestCreateAlbum_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing name", `{}`, http.StatusBadRequest},
		{"empty name", `{"name":""}`, http.StatusBadRequest},
		{"slash in name", `{"name":"a/b"}`, http.StatusBadRequest},
		{"invalid json", `{"name":`, http.StatusBadRequest},
		{"wrong type", `{"name":42}`, http.StatusBadRequest},
		{"no body", ``, http.StatusBadRequest},
		{"too large", `{"name":"` + strings.Repeat("x", MaxRequestBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
		{"valid", `{"name":"trip"}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil, nil)

			status, body := f.do(t, http.MethodPost, "/album", tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", status, tt.wantStatus, body)
			}
			if status != http.StatusOK && errorMessage(t, body) == "" {
				t.Errorf("body = %s, want error message", body)
			}
			if status != http.StatusOK && len(f.catalog.ListAlbums()) != 0 {
				t.Error("rejected request created an album")
			}
		})
	}
}

func TestCreateAlbum_DuplicateIsIdempotent(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.addMedia(t, "m1", "a.jpg")

	if status, _ := f.do(t, http.MethodPost, "/album", `{"name":"trip"}`); status != http.StatusOK {
		t.Fatalf("first create status = %d", status)
	}
	if status, _ := f.do(t, http.MethodPost, "/media/m1/album", `{"album":"trip"}`); status != http.StatusOK {
		t.Fatalf("assign status = %d", status)
	}

	status, body := f.do(t, http.MethodPost, "/album", `{"name":"trip"}`)
	if status != http.StatusOK {
		t.Fatalf("duplicate create status = %d body = %s", status, body)
	}
	resp := decode[models.AlbumsResponse](t, body)
	if !resp.Success || !resp.Albums.Contains("trip", "m1") {
		t.Errorf("duplicate create = %+v, want existing members kept", resp)
	}
}

func TestCreateAlbum_PersistenceFailure(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.persister.setFailing(true)

	status, body := f.do(t, http.MethodPost, "/album", `{"name":"trip"}`)
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 (body %s)", status, body)
	}
	if f.catalog.ListAlbums().Has("trip") {
		t.Error("album created despite persistence failure")
	}
}

func TestAssignAlbum(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantAlbum  string
	}{
		{"assign", "/media/m1/album", `{"album":"trip"}`, http.StatusOK, "trip"},
		{"clear with null", "/media/m1/album", `{"album":null}`, http.StatusOK, ""},
		{"missing album key", "/media/m1/album", `{}`, http.StatusBadRequest, "home"},
		{"empty album", "/media/m1/album", `{"album":""}`, http.StatusBadRequest, "home"},
		{"non-string album", "/media/m1/album", `{"album":7}`, http.StatusBadRequest, "home"},
		{"array body", "/media/m1/album", `["trip"]`, http.StatusBadRequest, "home"},
		{"unknown album", "/media/m1/album", `{"album":"nope"}`, http.StatusNotFound, "home"},
		{"unknown media", "/media/missing/album", `{"album":"trip"}`, http.StatusNotFound, "home"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t, nil, nil)
			f.addMedia(t, "m1", "a.jpg")
			for _, name := range []string{"trip", "home"} {
				if _, err := f.catalog.CreateAlbum(context.Background(), name); err != nil {
					t.Fatalf("CreateAlbum(%q) error = %v", name, err)
				}
			}
			if _, err := f.catalog.AssignAlbum(context.Background(), "m1", models.StringPtr("home")); err != nil {
				t.Fatalf("AssignAlbum() error = %v", err)
			}

			status, body := f.do(t, http.MethodPost, tt.path, tt.body)
			if status != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", status, tt.wantStatus, body)
			}

			got, err := f.catalog.Get("m1")
			if err != nil {
				t.Fatalf("Get(m1) error = %v", err)
			}
			if got.AlbumName() != tt.wantAlbum {
				t.Errorf("album = %q, want %q", got.AlbumName(), tt.wantAlbum)
			}

			albums := f.catalog.ListAlbums()
			for name, members := range albums {
				inAlbum := albums.Contains(name, "m1")
				if inAlbum != (name == tt.wantAlbum) {
					t.Errorf("album %q members = %v, inconsistent with entry album %q", name, members, tt.wantAlbum)
				}
			}
		})
	}
}

func TestAssignAlbum_UnknownAlbumMessage(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.addMedia(t, "m1", "a.jpg")

	status, body := f.do(t, http.MethodPost, "/media/m1/album", `{"album":"nope"}`)
	if status != http.StatusNotFound || errorMessage(t, body) != "unknown album" {
		t.Errorf("got %d %s, want 404 unknown album", status, body)
	}
}

func TestDeleteAlbum(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.addMedia(t, "m1", "a.jpg")
	if _, err := f.catalog.CreateAlbum(context.Background(), "summer trip"); err != nil {
		t.Fatalf("CreateAlbum() error = %v", err)
	}
	if _, err := f.catalog.AssignAlbum(context.Background(), "m1", models.StringPtr("summer trip")); err != nil {
		t.Fatalf("AssignAlbum() error = %v", err)
	}

	status, body := f.do(t, http.MethodDelete, "/album/summer%20trip", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d body = %s", status, body)
	}
	resp := decode[models.AlbumsResponse](t, body)
	if !resp.Success || resp.Albums.Has("summer trip") {
		t.Errorf("response = %+v, want album removed", resp)
	}

	got, _ := f.catalog.Get("m1")
	if got.Album != nil {
		t.Errorf("entry album = %q, want cleared", got.AlbumName())
	}

	status, body = f.do(t, http.MethodDelete, "/album/summer%20trip", "")
	if status != http.StatusNotFound || errorMessage(t, body) != "unknown album" {
		t.Errorf("second delete = %d %s, want 404 unknown album", status, body)
	}
}

func TestFiles(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.addMedia(t, "m1", "a.jpg")

	status, body := f.do(t, http.MethodGet, "/files/a.jpg", "")
	if status != http.StatusOK || string(body) != "binary:m1" {
		t.Errorf("GET /files/a.jpg = %d %q", status, body)
	}

	if status, _ := f.do(t, http.MethodGet, "/files/missing.jpg", ""); status != http.StatusNotFound {
		t.Errorf("GET missing file status = %d, want 404", status)
	}
	if status, _ := f.do(t, http.MethodGet, "/files/", ""); status != http.StatusNotFound {
		t.Errorf("directory listing status = %d, want 404", status)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	session := staticSession{status: models.SessionStatus{State: "closed", Reason: "logged out"}}
	f := newAPIFixture(t, session, nil)
	f.addMedia(t, "m1", "a.jpg")

	status, body := f.do(t, http.MethodGet, "/healthz", "")
	if status != http.StatusOK {
		t.Fatalf("healthz status = %d", status)
	}
	health := decode[models.HealthStatus](t, body)
	if health.Status != "ok" || health.Version != "test" {
		t.Errorf("healthz = %+v", health)
	}
	if health.Checks["media_entries"] != float64(1) || health.Checks["session"] != "closed" {
		t.Errorf("healthz checks = %v", health.Checks)
	}

	status, body = f.do(t, http.MethodGet, "/readyz", "")
	if status != http.StatusOK {
		t.Fatalf("readyz status = %d", status)
	}
	if got := decode[models.HealthStatus](t, body).Status; got != "degraded" {
		t.Errorf("readyz status = %q, want degraded while session closed", got)
	}

	status, body = f.do(t, http.MethodGet, "/session", "")
	got := decode[models.SessionStatus](t, body)
	if status != http.StatusOK || got.State != "closed" || got.Reason != "logged out" {
		t.Errorf("GET /session = %d %+v", status, got)
	}
}

func TestReady_OpenSession(t *testing.T) {
	f := newAPIFixture(t, staticSession{status: models.SessionStatus{State: "open"}}, nil)

	status, body := f.do(t, http.MethodGet, "/readyz", "")
	if status != http.StatusOK || decode[models.HealthStatus](t, body).Status != "ready" {
		t.Errorf("readyz = %d %s, want ready", status, body)
	}
}

func TestReady_NoCatalog(t *testing.T) {
	handler := NewHandler(nil, nil, nil, HandlerConfig{})
	rec := httptest.NewRecorder()
	handler.Ready(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestSession_NotConfigured(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	if status, _ := f.do(t, http.MethodGet, "/session", ""); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	status, body := f.do(t, http.MethodGet, "/nope", "")
	if status != http.StatusNotFound || errorMessage(t, body) != "not found" {
		t.Errorf("GET /nope = %d %s", status, body)
	}

	status, body = f.do(t, http.MethodPut, "/media", "")
	if status != http.StatusMethodNotAllowed || errorMessage(t, body) == "" {
		t.Errorf("PUT /media = %d %s", status, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	f.do(t, http.MethodGet, "/media", "")

	status, body := f.do(t, http.MethodGet, "/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if !strings.Contains(string(body), "api_requests_total") {
		t.Error("metrics output missing api_requests_total")
	}
}
