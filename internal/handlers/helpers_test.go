package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/abrezinsky/cartepays/internal/auth"
	"github.com/abrezinsky/cartepays/internal/handlers"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/repository"
	"github.com/abrezinsky/cartepays/internal/services"
	"github.com/abrezinsky/cartepays/internal/testutil"
	"github.com/abrezinsky/cartepays/internal/websocket"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

const testPassword = "test-password"

func createTestTemplatesFS() fstest.MapFS {
	return fstest.MapFS{
		"index.html":       &fstest.MapFile{Data: []byte(`<html><body>{{if .Error}}<p class="erreur">{{.Error}}</p>{{end}}{{.SVG}}</body></html>`)},
		"admin/login.html": &fstest.MapFile{Data: []byte(`<html><body>Login {{.Error}}</body></html>`)},
		"admin/index.html": &fstest.MapFile{Data: []byte(`<html><body>{{.Title}}</body></html>`)},
	}
}

type fixture struct {
	h        *handlers.Handlers
	router   http.Handler
	repo     *repository.Repository
	source   *geosource.MockSource
	settings *services.SettingsService
	auth     *auth.Auth
}

func newFixture(t *testing.T, opts ...geosource.MockOption) *fixture {
	t.Helper()
	log := logger.Nop{}
	repo := testutil.NewTestRepository(t)
	source := geosource.NewMockSource(opts...)

	settings := services.NewSettingsService(log, repo, "https://example.com/countries.geojson")
	tiers := services.NewTierService(log, repo)
	if _, err := tiers.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	maps := services.NewMapService(log, tiers, settings, func(string) geosource.Source { return source },
		services.View{Width: 960, Height: 500})
	tiers.SetReloader(maps)
	settings.SetReloader(maps)
	adminAuth := auth.New(testPassword)

	h, err := handlers.New(handlers.Deps{
		Maps:           maps,
		Tiers:          tiers,
		Settings:       settings,
		Share:          services.NewShareService(log, settings),
		Auth:           adminAuth,
		Hub:            websocket.New(log, maps, nil),
		DB:             repo,
		Log:            log,
		AllowedOrigins: []string{"http://hote.example"},
	}, createTestTemplatesFS(), handlers.NewStaticServer(fstest.MapFS{
		"js/carte.js": &fstest.MapFile{Data: []byte(`// carte`)},
	}))
	if err != nil {
		t.Fatalf("handlers.New failed: %v", err)
	}

	return &fixture{h: h, router: h.Router(), repo: repo, source: source, settings: settings, auth: adminAuth}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	token, ok := f.auth.Login(testPassword)
	if !ok {
		t.Fatal("login failed")
	}
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(f *fixture, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}
