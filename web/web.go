// Package web embeds the map page, the admin pages and the browser client
// that forwards viewer events to the map session.
package web

import (
	"embed"
	"io/fs"
)

// templates: index.html (map page), admin/login.html, admin/index.html
//
//go:embed templates/*
var templatesFS embed.FS

// static: js/carte.js (websocket client), js/admin.js, css/carte.css
//
//go:embed static/*
var staticFS embed.FS

// GetTemplatesFS returns the page templates rooted at templates/
func GetTemplatesFS() fs.FS {
	sub, _ := fs.Sub(templatesFS, "templates")
	return sub
}

// GetStaticFS returns the client assets rooted at static/, served under /static/
func GetStaticFS() fs.FS {
	sub, _ := fs.Sub(staticFS, "static")
	return sub
}
