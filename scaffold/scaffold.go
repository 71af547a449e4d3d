// Package scaffold holds the starter files written by "blogengine init".
package scaffold

import "embed"

// Templates contains the site starter files.
// Files use Go text/template syntax and have a .tmpl suffix.
//
//go:embed all:templates
var Templates embed.FS
