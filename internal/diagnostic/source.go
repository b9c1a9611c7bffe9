package diagnostic

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wharflab/tscheck/internal/fileval"
	"github.com/wharflab/tscheck/internal/sourcemap"
)

// Default source reader limits.
const (
	DefaultCacheSize    = 256
	DefaultReadAttempts = 3
)

// SourceOptions configures a SourceReader. Zero values select defaults.
type SourceOptions struct {
	// MaxFileSize skips files larger than this many bytes.
	MaxFileSize int64
	// ReadAttempts bounds reads of a file that vanished mid-save.
	ReadAttempts uint
	// CacheSize is the number of indexed files kept in memory.
	CacheSize int
	// RetryInterval is the first delay between read attempts.
	RetryInterval time.Duration
}

type sourceKey struct {
	path    string
	size    int64
	modTime time.Time
}

// SourceReader loads source lines for snippets. Indexed files are cached by
// path, size and modification time so watch-mode rechecks re-read only what
// changed.
type SourceReader struct {
	opts  SourceOptions
	cache *lru.Cache[sourceKey, *sourcemap.SourceMap]
}

// NewSourceReader creates a SourceReader.
func NewSourceReader(opts SourceOptions) *SourceReader {
	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = fileval.DefaultMaxFileSize
	}
	if opts.ReadAttempts == 0 {
		opts.ReadAttempts = DefaultReadAttempts
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 20 * time.Millisecond
	}
	cache, err := lru.New[sourceKey, *sourcemap.SourceMap](opts.CacheSize)
	if err != nil {
		// Only reachable with a non-positive size, excluded above.
		panic(err)
	}
	return &SourceReader{opts: opts, cache: cache}
}

// Line returns the 0-based line of path. It fails when the file cannot be
// read or validated, or when the line does not exist.
func (r *SourceReader) Line(ctx context.Context, path string, line int) (string, error) {
	sm, err := r.load(ctx, path)
	if err != nil {
		return "", err
	}
	if !sm.HasLine(line) {
		return "", &LineOutOfRangeError{Path: path, Line: line, LineCount: sm.LineCount()}
	}
	return sm.Line(line), nil
}

func (r *SourceReader) load(ctx context.Context, path string) (*sourcemap.SourceMap, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryInterval
	b.MaxInterval = 8 * r.opts.RetryInterval

	return backoff.Retry(ctx, func() (*sourcemap.SourceMap, error) {
		info, err := os.Stat(path)
		if err != nil {
			return nil, classifyReadError(err)
		}
		key := sourceKey{path: path, size: info.Size(), modTime: info.ModTime()}
		if sm, ok := r.cache.Get(key); ok {
			return sm, nil
		}

		content, err := fileval.ReadFile(path, r.opts.MaxFileSize)
		if err != nil {
			return nil, classifyReadError(err)
		}
		sm := sourcemap.New(content)
		r.cache.Add(key, sm)
		return sm, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.opts.ReadAttempts),
		backoff.WithMaxElapsedTime(0),
	)
}

// classifyReadError keeps a missing file retryable, since editors often save
// by rename, and makes everything else permanent.
func classifyReadError(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return backoff.Permanent(err)
}

// LineOutOfRangeError is returned when a diagnostic points past the end of
// the file as it is on disk now.
type LineOutOfRangeError struct {
	Path      string
	Line      int
	LineCount int
}

func (e *LineOutOfRangeError) Error() string {
	return e.Path + ": line out of range"
}
