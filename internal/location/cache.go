package location

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/backlightd/internal/errors"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultCacheTTL is how long a remotely resolved location stays valid.
	DefaultCacheTTL = 12 * time.Hour

	cacheDirPerm  = 0o755
	cacheFilePerm = 0o644
)

type cacheEntry struct {
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
	Timestamp float64 `toml:"timestamp"`
}

func (e cacheEntry) time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * float64(time.Second))

	return time.Unix(sec, nsec)
}

// Cache keeps the last remotely resolved location in memory and mirrors it to
// a TOML file so it survives restarts. The file is read lazily on the first
// lookup that finds the in-memory entry unset.
type Cache struct {
	path  string
	mu    sync.Mutex
	entry cacheEntry
}

func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Fresh returns the cached location when it was stored less than ttl before
// now. A read failure of the backing file is returned alongside a miss and
// leaves the cache empty.
func (c *Cache) Fresh(now time.Time, ttl time.Duration) (Location, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var loadErr error
	if c.entry.Timestamp == 0 {
		loadErr = c.load()
	}

	if c.entry.Timestamp == 0 || now.Sub(c.entry.time()) > ttl {
		return Location{}, false, loadErr
	}

	return Location{Latitude: c.entry.Latitude, Longitude: c.entry.Longitude}, true, nil
}

func (c *Cache) load() error {
	errFactory := errors.New()

	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errFactory.Wrap(ErrCacheRead, err)
	}

	var entry cacheEntry
	if err := toml.Unmarshal(data, &entry); err != nil {
		return errFactory.Wrap(ErrCacheRead, err).WithMessage("invalid location cache file")
	}

	c.entry = entry

	return nil
}

// Store records loc as resolved at now, then persists it. The in-memory entry
// is updated even when writing the file fails.
func (c *Cache) Store(loc Location, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entry = cacheEntry{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}

	if c.path == "" {
		return nil
	}

	return c.persist()
}

func (c *Cache) persist() error {
	errFactory := errors.New()

	data, err := toml.Marshal(c.entry)
	if err != nil {
		return errFactory.Wrap(ErrCacheWrite, err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), cacheDirPerm); err != nil {
		return errFactory.Wrap(ErrCacheWrite, err)
	}

	if err := os.WriteFile(c.path, data, cacheFilePerm); err != nil {
		return errFactory.Wrap(ErrCacheWrite, err)
	}

	return nil
}
