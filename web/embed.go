// Package web provides embedded static assets for the Aical web interface.
package web

import "embed"

// StaticFS contains the embedded static files for the web interface.
// These files are served by the HTTP server when running `aical web`.
//
//go:embed static/*
var StaticFS embed.FS
