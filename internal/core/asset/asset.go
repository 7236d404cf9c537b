// Package asset holds the path-addressed resource model shared by the scene
// serializer: the Asset capability, the loaders producing assets and the Cache
// guaranteeing one live instance per path.
package asset

import (
	"path"
	"strings"
)

// Asset is anything cacheable by its source path.
//
// Identity is the path, not the instance: a Cache hands out the same Asset for
// the same normalized path until it is released. Cleanup releases the native
// resources behind the asset and must be idempotent; using an asset after
// Cleanup is a programming error.
type Asset interface {
	Path() string
	Cleanup() error
}

// NormalizePath turns p into the canonical cache key: forward slashes, no
// leading "./" or "/", no redundant elements.
func NormalizePath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, `\`, `/`))
	if p == "" {
		return "", ErrEmptyPath
	}

	p = strings.TrimLeft(path.Clean(p), "/")
	if p == "" || p == "." {
		return "", ErrEmptyPath
	}
	return p, nil
}

// Folder returns the directory part of p including its trailing separator,
// or "" when p has no folder.
func Folder(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx <= 0 || idx == len(p)-1 {
		return ""
	}
	return p[:idx+1]
}

// Extension returns the lower-cased extension of p without the dot.
func Extension(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}
