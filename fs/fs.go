// Package appfs embeds the files the binaries need at runtime: DB migrations and render templates.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS
