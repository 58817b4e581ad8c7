package handlers

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/abrezinsky/cartepays/internal/auth"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/services"
	"github.com/abrezinsky/cartepays/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// Templates holds all parsed HTML templates
type Templates struct {
	Index      *template.Template
	AdminLogin *template.Template
	Admin      *template.Template
}

// Pinger checks that the store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Maps           services.MapServicer
	Tiers          services.TierServicer
	Settings       services.SettingsServicer
	Share          services.ShareServicer
	Auth           *auth.Auth
	Hub            *websocket.Hub
	DB             Pinger
	Log            logger.Logger
	AllowedOrigins []string
	templates      *Templates
	staticServer   http.Handler
}

// Deps groups the services a Handlers needs
type Deps struct {
	Maps     services.MapServicer
	Tiers    services.TierServicer
	Settings services.SettingsServicer
	Share    services.ShareServicer
	Auth     *auth.Auth
	Hub      *websocket.Hub
	DB       Pinger
	Log      logger.Logger
	// AllowedOrigins lists the hosts allowed to call the API cross-origin.
	// Empty allows any origin.
	AllowedOrigins []string
}

// New creates a new Handlers instance with all dependencies
func New(deps Deps, templatesFS fs.FS, staticServer http.Handler) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	h := newHandlers(deps)
	h.templates = templates
	h.staticServer = staticServer
	return h, nil
}

// NewForTesting creates a Handlers instance without loading templates (for testing API endpoints)
func NewForTesting(deps Deps) *Handlers {
	if deps.Auth == nil {
		deps.Auth = auth.New("test-password")
	}
	return newHandlers(deps)
}

func newHandlers(deps Deps) *Handlers {
	log := deps.Log
	if log == nil {
		log = logger.Nop{}
	}
	return &Handlers{
		Maps:           deps.Maps,
		Tiers:          deps.Tiers,
		Settings:       deps.Settings,
		Share:          deps.Share,
		Auth:           deps.Auth,
		Hub:            deps.Hub,
		DB:             deps.DB,
		Log:            log,
		AllowedOrigins: deps.AllowedOrigins,
	}
}

// loadTemplates parses all templates once at startup
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	t := &Templates{}
	var err error

	if t.Index, err = template.ParseFS(templatesFS, "index.html"); err != nil {
		return nil, fmt.Errorf("index template: %w", err)
	}
	if t.AdminLogin, err = template.ParseFS(templatesFS, "admin/login.html"); err != nil {
		return nil, fmt.Errorf("admin login template: %w", err)
	}
	if t.Admin, err = template.ParseFS(templatesFS, "admin/index.html"); err != nil {
		return nil, fmt.Errorf("admin template: %w", err)
	}

	return t, nil
}
