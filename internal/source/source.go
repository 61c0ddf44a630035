// Package source fetches the raw input datasets (referral export and
// preferred-provider list) from their configured origins.
package source

import (
	"context"
	"path"

	"github.com/rotisserie/eris"

	"github.com/sells-group/referral-cli/internal/config"
)

// Payload is one fetched dataset.
type Payload struct {
	// Data is the raw file content.
	Data []byte
	// FilenameHint carries the origin filename so format detection can
	// use its extension.
	FilenameHint string
	// Marker identifies the remote version that produced Data: an HTTP
	// ETag, an FTP modification time, or a local mtime. An unchanged
	// marker means an unchanged file.
	Marker string
}

// Source fetches one dataset.
type Source interface {
	// Name identifies the dataset for logs and the status board.
	Name() string
	// Fetch downloads the dataset. Sources that support conditional
	// fetches may use prevMarker to skip an unchanged download; when
	// they do, the returned payload carries the previous marker and
	// nil Data.
	Fetch(ctx context.Context, prevMarker string) (*Payload, error)
}

// FromConfig builds a Source for one configured dataset.
func FromConfig(name string, cfg config.SourceConfig) (Source, error) {
	switch cfg.Origin {
	case "local":
		if cfg.Path == "" {
			return nil, eris.Errorf("source: %s: local origin requires a path", name)
		}
		return NewLocal(name, cfg.Path), nil
	case "http":
		if cfg.URL == "" {
			return nil, eris.Errorf("source: %s: http origin requires a url", name)
		}
		return NewHTTP(name, cfg.URL, HTTPOptions{}), nil
	case "ftp":
		if cfg.Host == "" || cfg.Path == "" {
			return nil, eris.Errorf("source: %s: ftp origin requires host and path", name)
		}
		return NewFTP(name, FTPOptions{
			Host:     cfg.Host,
			Path:     cfg.Path,
			User:     cfg.User,
			Password: cfg.Password,
		}), nil
	default:
		return nil, eris.Errorf("source: %s: unknown origin %q", name, cfg.Origin)
	}
}

func hintFromPath(p string) string {
	return path.Base(p)
}
