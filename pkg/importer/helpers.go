package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/hazyhaar/yurenorm/pkg/synonym"
)

// ErrLocked is returned when another import holds the output directory.
var ErrLocked = errors.New("import already in progress")

// lockRetry is the delay between attempts to take the import lock.
const lockRetry = 200 * time.Millisecond

// downloadFile downloads url to dest with retries and timeout and returns
// the number of bytes written.
func downloadFile(ctx context.Context, url, dest string) (int64, error) {
	client := &http.Client{Timeout: 10 * time.Minute}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		f, err := os.Create(dest)
		if err != nil {
			resp.Body.Close()
			return 0, fmt.Errorf("create file: %w", err)
		}

		n, copyErr := io.Copy(f, resp.Body)
		resp.Body.Close()
		closeErr := f.Close()

		if copyErr != nil {
			lastErr = copyErr
			continue
		}
		if closeErr != nil {
			return 0, closeErr
		}
		return n, nil
	}
	return 0, fmt.Errorf("download %s failed after 3 attempts: %w", url, lastErr)
}

// lockDir takes an exclusive file lock for dictID under dir, waiting until
// ctx is done. The returned func releases it.
func lockDir(ctx context.Context, dir, dictID string) (func(), error) {
	fl := flock.New(filepath.Join(dir, "."+dictID+".lock"))
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("lock %s: %w", dictID, ErrLocked)
		}
		return nil, fmt.Errorf("lock %s: %w", dictID, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", dictID, ErrLocked)
	}
	return func() { fl.Unlock() }, nil
}

// writeManifest writes a Manifest as YAML to dir/manifest.yaml.
func writeManifest(dir string, m *synonym.Manifest) error {
	return synonym.WriteManifest(filepath.Join(dir, "manifest.yaml"), m)
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
