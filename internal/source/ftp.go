package source

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP source.
type FTPOptions struct {
	Host     string
	Path     string
	User     string
	Password string
	Timeout  time.Duration
}

// FTP downloads a dataset from an FTP drop. Some practice-management
// systems only deliver exports this way. The marker is the server's
// reported modification time, checked before the transfer so an
// unchanged file skips the download.
type FTP struct {
	name string
	opts FTPOptions
}

// NewFTP returns an FTP source.
func NewFTP(name string, opts FTPOptions) *FTP {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.User == "" {
		opts.User = "anonymous"
		opts.Password = "anonymous@"
	}
	return &FTP{name: name, opts: opts}
}

// Name implements Source.
func (f *FTP) Name() string { return f.name }

// Fetch implements Source.
func (f *FTP) Fetch(ctx context.Context, prevMarker string) (*Payload, error) {
	host := f.opts.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}

	zap.L().Debug("source: ftp connecting",
		zap.String("source", f.name),
		zap.String("host", host),
		zap.String("path", f.opts.Path),
	)

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "source: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(f.opts.User, f.opts.Password); err != nil {
		return nil, eris.Wrap(err, "source: ftp login")
	}

	marker := ""
	if mtime, err := conn.GetTime(f.opts.Path); err == nil {
		marker = mtime.UTC().Format(time.RFC3339)
	}
	if marker != "" && marker == prevMarker {
		zap.L().Debug("source: ftp file unchanged",
			zap.String("source", f.name),
			zap.String("marker", marker),
		)
		return &Payload{FilenameHint: hintFromPath(f.opts.Path), Marker: marker}, nil
	}

	resp, err := conn.Retr(f.opts.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: ftp retrieve %s", f.opts.Path)
	}
	data, err := io.ReadAll(resp)
	closeErr := resp.Close()
	if err != nil {
		return nil, eris.Wrap(err, "source: ftp read")
	}
	if closeErr != nil {
		return nil, eris.Wrap(closeErr, "source: ftp close")
	}

	zap.L().Info("source: ftp download complete",
		zap.String("source", f.name),
		zap.Int("bytes", len(data)),
		zap.String("marker", marker),
	)
	return &Payload{Data: data, FilenameHint: hintFromPath(f.opts.Path), Marker: marker}, nil
}
