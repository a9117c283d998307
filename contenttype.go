package fshello

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

// contentTypes maps a file extension (without the dot) to the Content-Type
// sent for it. Matching is case-sensitive.
var contentTypes = map[string]string{
	"html": "text/html;charset=utf-8",
	"css":  "text/css;charset=utf-8",
	"js":   "text/javascript;charset=utf-8",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// extension returns the text after the last dot of the base name.
// A name whose only dot is the leading one (".profile") has no extension.
func extension(name string) string {
	base := path.Base(name)
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 {
		return ""
	}
	return base[idx+1:]
}

// ContentType returns the Content-Type for name, falling back to
// application/octet-stream for unknown or missing extensions.
func ContentType(name string) string {
	if ctype, ok := contentTypes[extension(name)]; ok {
		return ctype
	}
	return defaultContentType
}
