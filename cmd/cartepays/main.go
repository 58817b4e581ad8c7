package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abrezinsky/cartepays/internal/app"
	"github.com/abrezinsky/cartepays/internal/auth"
	"github.com/abrezinsky/cartepays/internal/config"
	"github.com/abrezinsky/cartepays/internal/logger"
	"github.com/abrezinsky/cartepays/web"
)

var (
	version = "dev"
)

func main() {
	envFile := flag.String("env", ".env", "Environment file to read before flags")
	port := flag.Int("port", 0, "HTTP server port (default 8080)")
	dbPath := flag.String("db", "", "SQLite database path (default \"cartepays.db\")")
	geojsonURL := flag.String("geojson", "", "URL of the country boundaries GeoJSON")
	tiersFile := flag.String("tiers", "", "JSON file seeding listesPaysCarte/couleurs on first start")
	adminPw := flag.String("adminpw", "", "Admin password (auto-generated if not set)")
	logLevel := flag.String("loglevel", "", "Log level (debug, info, warn, error)")
	baseURL := flag.String("baseurl", "", "Public URL used in share links and QR codes")
	origins := flag.String("origins", "", "Comma-separated origins allowed to embed the map")
	httpLog := flag.Bool("httplog", false, "Log every HTTP request")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `cartepays - interactive tiered world map

Usage:
  cartepays [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Every option can also be set with a CARTEPAYS_* variable, for example
CARTEPAYS_GEOJSON_URL or CARTEPAYS_PORT. Flags win over the environment.

Examples:
  cartepays -geojson https://example.com/countries.geojson
  cartepays -geojson ./countries.geojson -tiers tiers.json -port 9000
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("cartepays %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Flags override the environment only when given
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.DBPath = *dbPath
		case "geojson":
			cfg.GeoJSONURL = *geojsonURL
		case "tiers":
			cfg.TiersFile = *tiersFile
		case "adminpw":
			cfg.AdminPassword = *adminPw
		case "loglevel":
			cfg.LogLevel = *logLevel
		case "baseurl":
			cfg.BaseURL = strings.TrimSuffix(*baseURL, "/")
		case "origins":
			cfg.AllowedOrigins = strings.Split(*origins, ",")
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(2)
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))
	if *httpLog {
		appLog.EnableHTTPLogging()
	}

	// Setup admin authentication
	password := cfg.AdminPassword
	if password == "" {
		password = auth.GeneratePassword()
	}
	adminAuth := auth.New(password)

	a, err := app.New(appLog, cfg, nil, web.GetTemplatesFS(), web.GetStaticFS(), adminAuth)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	appLog.Info("Admin password", "password", password)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Warm(ctx)
	if err := a.Run(ctx, cfg.Addr()); err != nil {
		appLog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
