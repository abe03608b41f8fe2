// simbrief/simbrief_test.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package simbrief

import (
	"testing"

	"github.com/simwidget/gpsnav/aviation"
)

const sampleOFP = `{
  "navlog": {
    "fix": [
      {"ident": "KJFK", "name": "John F Kennedy Intl", "type": "apt",
       "pos_lat": "40.639447", "pos_long": "-73.779317", "altitude_feet": "0"},
      {"ident": "MERIT", "name": "MERIT", "type": "wpt",
       "pos_lat": "41.381950", "pos_long": "-73.137392", "altitude_feet": "17000"},
      {"ident": "TOC", "name": "TOP OF CLIMB", "type": "ltlg",
       "pos_lat": "41.5", "pos_long": "-73.0", "altitude_feet": "36000"},
      {"ident": "HFD", "name": "Hartford", "type": "vor",
       "pos_lat": "41.641083", "pos_long": "-72.547417", "altitude_feet": "36000"},
      {"ident": "BAD", "name": "bad coordinates", "type": "wpt",
       "pos_lat": "not-a-number", "pos_long": "-72.0", "altitude_feet": "36000"},
      {"ident": "KBOS", "name": "Boston Logan Intl", "type": "apt",
       "pos_lat": "42.362944", "pos_long": "-71.006389", "altitude_feet": "0"}
    ]
  }
}`

func TestParseOFP(t *testing.T) {
	wps, err := ParseOFP([]byte(sampleOFP))
	if err != nil {
		t.Fatalf("ParseOFP: %v", err)
	}

	// TOC (a pseudo-fix) and BAD (unparseable) are dropped.
	idents := []string{"KJFK", "MERIT", "HFD", "KBOS"}
	if len(wps) != len(idents) {
		t.Fatalf("got %d waypoints, expected %d", len(wps), len(idents))
	}
	for i, ident := range idents {
		if wps[i].Ident != ident {
			t.Errorf("waypoint %d: got %s, expected %s", i, wps[i].Ident, ident)
		}
	}

	if wps[1].Constraint.Kind != aviation.ConstraintAtOrBelow || wps[1].Constraint.Primary != 17000 {
		t.Errorf("MERIT constraint: got %+v, expected at-or-below 17000", wps[1].Constraint)
	}
	if wps[0].Constraint.Kind != aviation.ConstraintNone {
		t.Errorf("zero planned altitude should carry no constraint, got %+v", wps[0].Constraint)
	}

	if lat := wps[2].Location.Latitude(); lat < 41.6 || lat > 41.7 {
		t.Errorf("HFD latitude: got %g", lat)
	}
}

func TestParseOFPGarbage(t *testing.T) {
	if _, err := ParseOFP([]byte("not json")); err == nil {
		t.Errorf("expected an error for malformed OFP")
	}

	wps, err := ParseOFP([]byte(`{"navlog": {"fix": []}}`))
	if err != nil || len(wps) != 0 {
		t.Errorf("empty navlog: got %d waypoints, err %v", len(wps), err)
	}
}
