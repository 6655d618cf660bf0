package backends

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/i474232898/radar-archive/internal/radar"
)

// LocalFS lists and copies files of a local archive.
type LocalFS struct{}

// NewLocalFS returns the local filesystem collaborator.
func NewLocalFS() *LocalFS {
	return &LocalFS{}
}

func (l *LocalFS) Protocol() radar.Protocol {
	return radar.ProtocolFile
}

// List returns the regular files directly under dir. A missing directory is
// an empty listing.
func (l *LocalFS) List(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Size returns the size of a local file.
func (l *LocalFS) Size(_ context.Context, path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, wrapError(CodeObjectNotFound, false, err)
		}
		return 0, err
	}
	return info.Size(), nil
}

// Download copies src to dst, creating parent directories as needed.
func (l *LocalFS) Download(ctx context.Context, src, dst string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, wrapError(CodeObjectNotFound, false, err)
		}
		return 0, err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, err
	}
	return n, nil
}
