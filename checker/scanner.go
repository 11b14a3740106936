// ABOUTME: Concurrent directory scanner that checks every plugin file for one game
// ABOUTME: Computes CRC32s, parses plugins whole, and collects warnings into a report

package checker

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/prateek/esplens/game"
	"github.com/prateek/esplens/plugin"
)

// Options configures a Scanner
type Options struct {
	// Game selects the rules plugins are checked against
	Game game.ID

	// Concurrency bounds how many plugins are checked at once. Zero means one per CPU.
	Concurrency int

	// Cache, if set, skips files unchanged since their last check
	Cache *Cache

	// Metrics, if set, receives scan counters
	Metrics *Metrics

	// Dirty, if set, lists releases that raise WarnDirty
	Dirty *DirtyList

	Logger *logrus.Logger
}

// Scanner checks plugin files
type Scanner struct {
	game        game.ID
	concurrency int
	cache       *Cache
	metrics     *Metrics
	dirty       *DirtyList
	logger      *logrus.Logger
}

// NewScanner creates a scanner for a supported game
func NewScanner(opts Options) (*Scanner, error) {
	if !opts.Game.Valid() {
		return nil, fmt.Errorf("%w: %s", game.ErrInvalidGame, opts.Game)
	}
	if opts.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must not be negative, got %d", opts.Concurrency)
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	return &Scanner{
		game:        opts.Game,
		concurrency: opts.Concurrency,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		dirty:       opts.Dirty,
		logger:      opts.Logger,
	}, nil
}

// Game returns the game the scanner checks against
func (s *Scanner) Game() game.ID {
	return s.game
}

// IsPluginFile reports whether name has a plugin extension
func IsPluginFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".esp", ".esm", ".esl":
		return true
	default:
		return false
	}
}

// ListPlugins returns the paths of plugin files directly inside dir, sorted by name
func ListPlugins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsPluginFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// Scan checks every plugin in dir and returns a report in directory order
func (s *Scanner) Scan(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()

	paths, err := ListPlugins(dir)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"dir":     dir,
		"game":    s.game.String(),
		"plugins": len(paths),
	}).Info("Scanning plugins")

	results := make([]Result, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for i, path := range paths {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.CheckFile(path)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		ID:        uuid.NewString(),
		Game:      s.game.String(),
		Dir:       dir,
		StartedAt: start,
		Duration:  time.Since(start),
		Results:   results,
	}

	if s.metrics != nil {
		s.metrics.ScanDuration.WithLabelValues(s.game.String()).Observe(report.Duration.Seconds())
	}
	s.logger.WithFields(logrus.Fields{
		"scan":     report.ID,
		"plugins":  len(results),
		"warnings": report.WarningCount(),
		"duration": report.Duration,
	}).Info("Scan complete")

	return report, nil
}

// CheckFile checks a single plugin file. Problems with the file are reported
// in the result rather than as an error.
func (s *Scanner) CheckFile(path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		r := Result{Path: path, Name: filepath.Base(path)}
		r.Error = err.Error()
		r.Warnings = []Warning{WarnUnreadable}
		s.observe(&r, nil)
		return r
	}
	return s.checkFile(path, info)
}

// checkFile checks path, using info only to look up a cached result. The
// result is cached under the identity of the content actually read.
func (s *Scanner) checkFile(path string, info os.FileInfo) Result {
	r := Result{Path: path, Name: filepath.Base(path), Size: info.Size()}

	if s.cache != nil {
		if cached, ok := s.cache.Get(path, info); ok {
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			s.logger.WithField("plugin", r.Name).Debug("Using cached result")
			return cached
		}
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
	}

	read, parseErr := s.check(&r)
	s.observe(&r, parseErr)

	if s.cache != nil && read != nil {
		s.cache.Add(path, read, r)
	}
	return r
}

// readPlugin reads the file and returns the stat of the open handle. The
// returned info is nil when the file changed while it was being read.
func readPlugin(path string) ([]byte, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	before, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	after, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}

	if !sameContent(before, after) || int64(len(content)) != after.Size() {
		return content, nil, nil
	}
	return content, after, nil
}

// sameContent reports whether two stats of a file describe the same contents
func sameContent(a, b os.FileInfo) bool {
	return a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

// check reads and parses the plugin. It returns the file identity to cache
// the result under, or nil if the result should not be cached, along with
// the parse failure if there was one.
func (s *Scanner) check(r *Result) (os.FileInfo, error) {
	content, info, err := readPlugin(r.Path)
	if err != nil {
		r.Error = err.Error()
		r.Warnings = []Warning{WarnUnreadable}
		return nil, nil
	}
	r.Size = int64(len(content))

	// Empty files have nothing to parse
	if len(content) == 0 {
		return info, nil
	}
	r.CRC32 = crc32.ChecksumIEEE(content)

	parseErr := s.parse(r, content)
	if entry, ok := s.dirty.Lookup(r.Name, r.CRC32); ok {
		r.Dirty = &entry
		r.Warnings = append(r.Warnings, WarnDirty)
	}
	return info, parseErr
}

// parse decodes the whole plugin and evaluates it into r
func (s *Scanner) parse(r *Result, content []byte) error {
	p, err := plugin.New(s.game, r.Path)
	if err != nil {
		return err
	}
	if err := p.Parse(content, plugin.WholePlugin()); err != nil {
		r.Error = err.Error()
		r.Warnings = []Warning{WarnParseError}
		return err
	}

	if err := evaluate(r, p); err != nil {
		r.Error = err.Error()
		r.Warnings = []Warning{WarnParseError}
		return err
	}
	return nil
}

// observe logs and counts a fresh result
func (s *Scanner) observe(r *Result, parseErr error) {
	fields := logrus.Fields{"plugin": r.Name, "crc32": fmt.Sprintf("%08X", r.CRC32)}

	switch {
	case parseErr != nil:
		s.logger.WithFields(fields).WithError(parseErr).Warn("Failed to parse plugin")
	case len(r.Warnings) > 0:
		s.logger.WithFields(fields).WithField("warnings", r.Warnings).Warn("Plugin has warnings")
	default:
		s.logger.WithFields(fields).Debug("Plugin checked")
	}

	if s.metrics == nil {
		return
	}
	name := s.game.String()
	s.metrics.PluginsScanned.WithLabelValues(name).Inc()
	for _, w := range r.Warnings {
		s.metrics.Warnings.WithLabelValues(name, string(w)).Inc()
	}
	if parseErr != nil {
		kind := "unknown"
		var pe *plugin.ParseError
		if errors.As(parseErr, &pe) && pe.Kind != 0 {
			kind = pe.Kind.String()
		}
		s.metrics.ParseErrors.WithLabelValues(name, kind).Inc()
	}
}
