// Package ticketflow provides the embedded web front end assets.
package ticketflow

import "embed"

// In dev mode (DEV=true) templates and static files are read from disk so
// edits show up on reload; otherwise these embedded copies are served.

//go:embed all:frontend/static
var StaticFS embed.FS

//go:embed all:frontend/templates
var TemplateFS embed.FS
