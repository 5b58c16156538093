package templates

import (
	"fmt"
	"html/template"
	"path"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FuncMap returns the functions available to every listing template.
//
//	title      "my notes" -> "My Notes"
//	humanSize  1536 -> "1.5 KB"
//	join       "/a/", "b" -> "/a/b"
func FuncMap() template.FuncMap {
	caser := cases.Title(language.Und)

	return template.FuncMap{
		"title": func(s string) string {
			return caser.String(s)
		},
		"humanSize": humanSize,
		"join": func(elems ...string) string {
			return path.Join(elems...)
		},
	}
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
