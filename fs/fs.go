// Package appfs exposes the application's embedded static files:
// database migrations, email templates and assets.
package appfs

import "embed"

//go:embed migrations all:templates assets
var FS embed.FS
