package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/cartepays/internal/auth"
	"github.com/abrezinsky/cartepays/internal/config"
	"github.com/abrezinsky/cartepays/internal/handlers"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/internal/repository"
	"github.com/abrezinsky/cartepays/internal/services"
	"github.com/abrezinsky/cartepays/internal/websocket"
	"github.com/abrezinsky/cartepays/pkg/geosource"
)

const shutdownTimeout = 5 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      config.Config
	handlers *handlers.Handlers
	repo     *repository.Repository
	maps     *services.MapService
	tiers    *services.TierService
}

// New creates and initializes a new application instance. A nil newSource
// downloads geometry over HTTP.
func New(log logger.Logger, cfg config.Config, newSource services.SourceFactory, templatesFS, staticFS fs.FS, adminAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	if newSource == nil {
		newSource = func(url string) geosource.Source {
			return geosource.NewHTTPSource(url, log)
		}
	}

	// Initialize services
	settingsService := services.NewSettingsService(log, repo, cfg.GeoJSONURL)
	tierService := services.NewTierService(log, repo)
	mapService := services.NewMapService(log, tierService, settingsService, newSource, services.View{
		Width:  cfg.Width,
		Height: cfg.Height,
		Margin: cfg.Margin,
	})
	shareService := services.NewShareService(log, settingsService)
	tierService.SetReloader(mapService)
	settingsService.SetReloader(mapService)

	// Initialize WebSocket hub with DI
	hub := websocket.New(log, mapService, cfg.AllowedOrigins)
	hub.Start()
	mapService.SetBroadcaster(hub)

	// Create static file server
	staticServer := handlers.NewStaticServer(staticFS)

	h, err := handlers.New(handlers.Deps{
		Maps:           mapService,
		Tiers:          tierService,
		Settings:       settingsService,
		Share:          shareService,
		Auth:           adminAuth,
		Hub:            hub,
		DB:             repo,
		Log:            log,
		AllowedOrigins: cfg.AllowedOrigins,
	}, templatesFS, staticServer)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	a := &App{
		log:      log,
		cfg:      cfg,
		handlers: h,
		repo:     repo,
		maps:     mapService,
		tiers:    tierService,
	}
	if err := a.seedTiers(context.Background()); err != nil {
		repo.Close()
		return nil, err
	}
	return a, nil
}

// seedTiers stores the tiers file, or the defaults, into an empty store
func (a *App) seedTiers(ctx context.Context) error {
	var (
		seeded bool
		err    error
	)
	if a.cfg.TiersFile != "" {
		f, openErr := os.Open(a.cfg.TiersFile)
		if openErr != nil {
			return fmt.Errorf("opening tiers file: %w", openErr)
		}
		defer f.Close()
		seeded, err = a.tiers.SeedFrom(ctx, f)
	} else {
		seeded, err = a.tiers.SeedDefaults(ctx)
	}
	if err != nil {
		return fmt.Errorf("seeding tiers: %w", err)
	}
	if seeded {
		a.log.Info("Tier configuration initialized", "file", a.cfg.TiersFile)
	}
	return nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Close performs graceful shutdown of app resources
func (a *App) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Warm mounts the map in the background so the first viewer does not wait
// for the geometry download
func (a *App) Warm(ctx context.Context) {
	go func() {
		if _, err := a.maps.Map(ctx); err != nil {
			a.log.Warn("Map not mounted at startup, will retry on first request", "error", err)
			return
		}
		a.log.Info("Map mounted", "source", a.maps.SourceURL())
	}()
}

// Run starts the HTTP server and stops it when ctx is cancelled
func (a *App) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	baseURL := a.cfg.BaseURL
	if baseURL == "" {
		ip := getPreferredIP(realNetworkProvider{})
		baseURL = fmt.Sprintf("http://%s:%d", ip, ln.Addr().(*net.TCPAddr).Port)
		a.setDefaultBaseURL(baseURL)
	} else {
		a.setBaseURL(baseURL)
	}

	a.log.Info("Server starting", "url", baseURL)
	a.log.Info("Admin URL", "url", baseURL+"/admin")

	srv := &http.Server{
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		a.log.Info("Server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-serveErr; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// setBaseURL stores an explicitly configured base URL
func (a *App) setBaseURL(baseURL string) {
	if err := a.repo.SetSetting(context.Background(), repository.SettingBaseURL, baseURL); err != nil {
		a.log.Warn("Failed to set base_url", "error", err)
	}
}

// setDefaultBaseURL sets the base URL setting if not already configured
// or if current value uses localhost (which isn't useful for QR codes)
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, _ := a.repo.GetSetting(ctx, repository.SettingBaseURL)

	needsUpdate := existing == "" || strings.Contains(existing, "localhost")
	if needsUpdate {
		if err := a.repo.SetSetting(ctx, repository.SettingBaseURL, baseURL); err != nil {
			a.log.Warn("Failed to set default base_url", "error", err)
		} else {
			a.log.Info("Default base URL set", "url", baseURL)
		}
	}
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

// realInterface wraps a real net.Interface
type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

// networkProvider is an interface for getting network interfaces (for testing)
type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

// realNetworkProvider implements networkProvider using actual net package
type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP returns the best IPv4 address for LAN viewers, preferring
// private ranges. Falls back to localhost.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		if ip.IsPrivate() {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}
