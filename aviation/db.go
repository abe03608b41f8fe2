// aviation/db.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/simwidget/gpsnav/log"
	"github.com/simwidget/gpsnav/math"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"
)

// Fix is the result of a navaid/airport/waypoint lookup: everything the
// core needs to fly direct to an identifier or auto-tune a localizer.
type Fix struct {
	Ident     string        `json:"ident"`
	Location  math.Point2LL `json:"location"`
	Type      string        `json:"type,omitempty"` // "VOR", "NDB", "FIX", "AIRPORT", "ILS", ...
	Frequency float32       `json:"frequency,omitempty"`
}

// Locator resolves identifier strings to fixes. Lookups may fail; callers
// degrade gracefully (the feature that needed the fix is skipped).
type Locator interface {
	Locate(ident string) (Fix, bool)
}

///////////////////////////////////////////////////////////////////////////
// StaticDB

// StaticDB is an in-memory fix database loaded from a zstd-compressed
// JSON file shipped alongside the binary.
type StaticDB struct {
	fixes map[string]Fix
}

func LoadStaticDB(path string) (*StaticDB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer zr.Close()

	var fixes []Fix
	if err := json.NewDecoder(zr).Decode(&fixes); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	db := &StaticDB{fixes: make(map[string]Fix, len(fixes))}
	for _, fix := range fixes {
		db.fixes[strings.ToUpper(fix.Ident)] = fix
	}
	return db, nil
}

func (db *StaticDB) Locate(ident string) (Fix, bool) {
	fix, ok := db.fixes[strings.ToUpper(ident)]
	return fix, ok
}

///////////////////////////////////////////////////////////////////////////
// RemoteLocator

// RemoteLocator resolves fixes through an external HTTP lookup service.
// Results are LRU-cached and requests are rate limited so that a failing
// lookup is never retried in a tight loop.
type RemoteLocator struct {
	baseURL string
	client  *http.Client
	cache   *lru.Cache[string, Fix]
	limiter *rate.Limiter
	lg      *log.Logger
}

func NewRemoteLocator(baseURL string, lg *log.Logger) *RemoteLocator {
	cache, _ := lru.New[string, Fix](512) // only errors on size <= 0
	return &RemoteLocator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(time.Second), 4),
		lg:      lg,
	}
}

func (r *RemoteLocator) Locate(ident string) (Fix, bool) {
	ident = strings.ToUpper(ident)
	if fix, ok := r.cache.Get(ident); ok {
		return fix, true
	}
	if !r.limiter.Allow() {
		return Fix{}, false
	}

	resp, err := r.client.Get(r.baseURL + "/" + ident)
	if err != nil {
		r.lg.Debugf("%s: fix lookup failed: %v", ident, err)
		return Fix{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.lg.Debugf("%s: fix lookup returned %d", ident, resp.StatusCode)
		return Fix{}, false
	}

	var fix Fix
	if err := json.NewDecoder(resp.Body).Decode(&fix); err != nil {
		r.lg.Debugf("%s: decoding fix: %v", ident, err)
		return Fix{}, false
	}

	r.cache.Add(ident, fix)
	return fix, true
}

///////////////////////////////////////////////////////////////////////////
// TieredLocator

// TieredLocator tries each locator in turn; the static database first,
// then (if configured) the remote service.
type TieredLocator []Locator

func (t TieredLocator) Locate(ident string) (Fix, bool) {
	for _, loc := range t {
		if fix, ok := loc.Locate(ident); ok {
			return fix, true
		}
	}
	return Fix{}, false
}
