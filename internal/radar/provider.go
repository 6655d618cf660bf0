package radar

import (
	"context"
	"time"
)

// Filesystem abstracts a directory listing backend (local disk, S3, GCS).
type Filesystem interface {
	Protocol() Protocol
	// List returns the full filepaths (or bucket URLs) of the files stored
	// directly under dir. A missing directory yields an empty list.
	List(ctx context.Context, dir string) ([]string, error)
}

// Downloader fetches one remote file to a local path.
type Downloader interface {
	Protocol() Protocol
	Size(ctx context.Context, remote string) (int64, error)
	Download(ctx context.Context, remote, local string) (int64, error)
}

// Catalog is the configuration store of networks and radars.
type Catalog interface {
	Network(name string) (Network, error)
	Radar(network, radar string) (Radar, error)
	Networks() []Network
}

// Observer receives search instrumentation.
type Observer interface {
	SearchCompleted(network string, protocol Protocol, files int, elapsed time.Duration, err error)
	DirectoryListed(protocol Protocol, entries int, err error)
}

type nopObserver struct{}

func (nopObserver) SearchCompleted(string, Protocol, int, time.Duration, error) {}
func (nopObserver) DirectoryListed(Protocol, int, error)                        {}
