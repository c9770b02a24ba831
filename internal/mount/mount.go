// Package mount owns the per-scenario filesystem lifecycle: an ephemeral
// mount point, the S3 client behind it, and the FUSE serving session. A
// Handle acquires all three in Mount and releases all of them in Close,
// which is idempotent and safe to defer on every exit path.
package mount

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	gofusefs "github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"

	"github.com/objectfs/fsbench/internal/config"
	"github.com/objectfs/fsbench/internal/fuse"
	"github.com/objectfs/fsbench/internal/metrics"
	"github.com/objectfs/fsbench/internal/storage/s3"
)

// FSName tags the mounted filesystem so it is recognizable in mount tables
// and diagnostics.
const FSName = "fsbench"

// Error reports a failure while establishing a mount. Stage says how far
// setup got before failing.
type Error struct {
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mount: %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Handle is an active mounted filesystem. Exactly one exists per running
// scenario; Close tears everything down.
type Handle struct {
	dir     string
	server  *gofuse.Server
	backend *s3.Backend
	fsys    *fuse.FileSystem
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Mount creates a temporary mount point, connects to S3, and starts a
// read-only FUSE session serving the bucket there. Any partially acquired
// resource is released before an error is returned.
func Mount(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// Refuse bad configuration before acquiring anything; a config error
	// must leave no mount side effect behind.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", FSName+"-*")
	if err != nil {
		return nil, &Error{Stage: "mountpoint", Err: err}
	}

	backend, err := s3.NewBackend(ctx, cfg.Bucket, &s3.Config{
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		ForcePathStyle: cfg.Endpoint != "",
		MaxRetries:     3,
	}, logger)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &Error{Stage: "client", Err: err}
	}

	// Probe the bucket now so a bad region, missing credentials, or an
	// unreachable endpoint fails the scenario here rather than as EIO on
	// the first read through the mount.
	if err := backend.HealthCheck(ctx); err != nil {
		_ = backend.Close()
		_ = os.RemoveAll(dir)
		return nil, &Error{Stage: "client", Err: err}
	}

	collector := metrics.NewCollector(FSName)
	fsys := fuse.New(backend, "", collector, logger)

	timeout := time.Second
	opts := &gofusefs.Options{
		MountOptions: gofuse.MountOptions{
			Name:       FSName,
			FsName:     FSName,
			AllowOther: false,
			// auto_unmount is a safety net: fusermount cleans the mount
			// up if this process dies without running Close.
			Options: []string{"ro", "auto_unmount"},
		},
		AttrTimeout:  &timeout,
		EntryTimeout: &timeout,
	}

	server, err := gofusefs.Mount(dir, fsys.Root(), opts)
	if err != nil {
		_ = backend.Close()
		_ = os.RemoveAll(dir)
		return nil, &Error{Stage: "fuse", Err: err}
	}

	logger.Info("filesystem mounted", "mountpoint", dir, "bucket", backend.Bucket())

	return &Handle{
		dir:     dir,
		server:  server,
		backend: backend,
		fsys:    fsys,
		logger:  logger,
	}, nil
}

// Mountpoint returns the directory the filesystem is mounted at.
func (h *Handle) Mountpoint() string {
	return h.dir
}

// Path joins a mount-relative file path onto the mount point.
func (h *Handle) Path(rel string) string {
	return filepath.Join(h.dir, rel)
}

// Stats returns the filesystem's operation counters.
func (h *Handle) Stats() metrics.Stats {
	return h.fsys.Stats()
}

// Close synchronously unmounts the filesystem, stops the serving session,
// and removes the temporary mount point. It is safe to call more than once;
// only the first call does anything.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if h.server != nil {
			if err := h.server.Unmount(); err != nil {
				h.logger.Warn("unmount failed, detaching lazily", "mountpoint", h.dir, "error", err)
				if derr := detach(h.dir); derr != nil {
					h.closeErr = &Error{Stage: "unmount", Err: err}
				}
				// After a lazy detach a straggling open handle can pin
				// the detached connection; waiting on the serving loop
				// here could block forever.
			} else {
				h.server.Wait()
			}
		}

		if h.backend != nil {
			if err := h.backend.Close(); err != nil && h.closeErr == nil {
				h.closeErr = err
			}
		}

		if err := os.RemoveAll(h.dir); err != nil && h.closeErr == nil {
			h.closeErr = err
		}

		h.logger.Info("filesystem unmounted", "mountpoint", h.dir)
	})
	return h.closeErr
}
