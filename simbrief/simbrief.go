// simbrief/simbrief.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package simbrief fetches the pilot's current SimBrief OFP and feeds its
// route to the navigator as a background refresh. The refresh is
// best-effort: fetch or decode failures are logged and the next interval
// tries again, and the navigator itself rejects the plan once the pilot
// has edited theirs.
package simbrief

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/simwidget/gpsnav/aviation"
	"github.com/simwidget/gpsnav/log"
	"github.com/simwidget/gpsnav/math"
	"github.com/simwidget/gpsnav/nav"
	"github.com/simwidget/gpsnav/util"

	"github.com/jasonlvhit/gocron"
)

const fetchURL = "https://www.simbrief.com/api/xml.fetcher.php"

const refreshInterval = 30 // seconds

// Updater periodically pulls the OFP for a SimBrief user id and applies
// it to the navigator.
type Updater struct {
	userID  string
	baseURL string
	client  *http.Client
	nav     *nav.Nav
	lg      *log.Logger
}

func NewUpdater(userID string, n *nav.Nav, lg *log.Logger) *Updater {
	return &Updater{
		userID:  userID,
		baseURL: fetchURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		nav:     n,
		lg:      lg,
	}
}

// Schedule registers the periodic refresh with the given scheduler; the
// caller owns starting and stopping it.
func (u *Updater) Schedule(s *gocron.Scheduler) error {
	return s.Every(refreshInterval).Seconds().Do(u.Refresh)
}

// Refresh fetches the OFP once and hands the route to the navigator.
func (u *Updater) Refresh() {
	wps, err := u.fetch()
	if err != nil {
		u.lg.Warnf("simbrief: %v", err)
		return
	}
	if len(wps) == 0 {
		u.lg.Debugf("simbrief: OFP for %s has no route", u.userID)
		return
	}

	if u.nav.ApplySyncedPlan(wps, aviation.SourceSimBrief) {
		u.lg.Infof("simbrief: applied refreshed plan, %d waypoints", len(wps))
	} else {
		u.lg.Debugf("simbrief: plan modified locally; refresh suppressed")
	}
}

func (u *Updater) fetch() ([]aviation.Waypoint, error) {
	q := url.Values{"userid": {u.userID}, "json": {"1"}}
	resp, err := u.client.Get(u.baseURL + "?" + q.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OFP fetch returned %d", resp.StatusCode)
	}

	ofp, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return ParseOFP(ofp)
}

// SimBrief encodes all numeric fields as JSON strings.
type ofpFix struct {
	Ident    string `json:"ident"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Lat      string `json:"pos_lat"`
	Long     string `json:"pos_long"`
	Altitude string `json:"altitude_feet"`
}

type ofp struct {
	Navlog struct {
		Fixes []ofpFix `json:"fix"`
	} `json:"navlog"`
}

// navigable reports whether an OFP fix is a real waypoint to fly to:
// "TOC"/"TOD" pseudo-fixes aren't, and neither is anything whose
// coordinates don't parse.
func navigable(fix ofpFix) bool {
	if fix.Type == "ltlg" || fix.Ident == "TOC" || fix.Ident == "TOD" {
		return false
	}
	_, errLat := strconv.ParseFloat(fix.Lat, 32)
	_, errLong := strconv.ParseFloat(fix.Long, 32)
	return errLat == nil && errLong == nil
}

// ParseOFP extracts the route from a SimBrief OFP in JSON form. Fixes
// with unparseable coordinates are skipped rather than failing the whole
// plan; the cruise altitudes SimBrief plans per fix are carried as
// at-or-below constraints only when present.
func ParseOFP(b []byte) ([]aviation.Waypoint, error) {
	var o ofp
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("decoding OFP: %w", err)
	}

	wps := util.MapSlice(util.FilterSlice(o.Navlog.Fixes, navigable),
		func(fix ofpFix) aviation.Waypoint {
			lat, _ := strconv.ParseFloat(fix.Lat, 32)
			long, _ := strconv.ParseFloat(fix.Long, 32)

			wp := aviation.Waypoint{
				Ident:    fix.Ident,
				Location: math.MakePoint2LL(float32(lat), float32(long)),
			}
			if alt, err := strconv.ParseFloat(fix.Altitude, 32); err == nil && alt > 0 {
				wp.Constraint = aviation.AltitudeConstraint{
					Kind:    aviation.ConstraintAtOrBelow,
					Primary: float32(alt),
				}
			}
			return wp
		})
	return wps, nil
}
