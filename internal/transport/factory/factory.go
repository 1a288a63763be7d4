// Package factory selects and dials the right transport for a browsing
// session based on the connection parameters it was handed.
package factory

import (
	"context"

	"github.com/mediabridge/mediabridge/internal/transport"
	"github.com/mediabridge/mediabridge/internal/transport/local"
	"github.com/mediabridge/mediabridge/internal/transport/remote"
	"github.com/mediabridge/mediabridge/internal/transport/s3"
)

// Config carries the opaque connection parameters for every transport kind.
// A set S3 bucket wins over a set SSH host; with neither, the root path is
// treated as a local directory.
type Config struct {
	SSH remote.Config
	S3  s3.Config
}

// Dial returns a connected transport for the given config.
func Dial(ctx context.Context, cfg Config) (transport.Transport, error) {
	switch {
	case cfg.S3.Bucket != "":
		return s3.New(ctx, cfg.S3)
	case cfg.SSH.Host != "":
		return remote.Dial(ctx, cfg.SSH)
	default:
		return local.New(), nil
	}
}
