// Package web embeds the HTML partials and static assets served by the
// back-office.
package web

import "embed"

var (
	//go:embed templates/*.html
	TemplatesFS embed.FS

	//go:embed static/app.css static/app.js
	StaticFS embed.FS
)
