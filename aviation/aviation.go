// aviation/aviation.go
// Copyright(c) 2024-2026 gpsnav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// LegType

// LegType describes the ARINC-424-style path type of the leg that
// terminates at a waypoint. Only the types that matter for guidance are
// distinguished; everything else is LegNone.
type LegType int

const (
	LegNone LegType = iota
	LegCourseToFix
	LegTrackToFix
	LegDirectToFix
	LegHoldToAltitude
	LegHoldToFix
	LegHoldToManual
)

func (l LegType) String() string {
	return []string{"none", "CF", "TF", "DF", "HA", "HF", "HM"}[l]
}

// IsHold reports whether the leg is one of the holding-pattern variants.
func (l LegType) IsHold() bool {
	return l == LegHoldToAltitude || l == LegHoldToFix || l == LegHoldToManual
}

///////////////////////////////////////////////////////////////////////////
// ProcedureClass

// ProcedureClass tags a waypoint with the procedure it came from.
type ProcedureClass int

const (
	ProcNone ProcedureClass = iota
	ProcSID
	ProcSTAR
	ProcApproach
)

func (p ProcedureClass) String() string {
	return []string{"none", "SID", "STAR", "APPROACH"}[p]
}

///////////////////////////////////////////////////////////////////////////
// ApproachType

type ApproachType int

const (
	ApproachUnknown ApproachType = iota
	ApproachILS
	ApproachLocalizer
	ApproachRNAV
	ApproachVOR
	ApproachNDB
	ApproachTACAN
)

func (a ApproachType) String() string {
	return []string{"UNKNOWN", "ILS", "LOC", "RNAV", "VOR", "NDB", "TACAN"}[a]
}

// IsLocalizerBased reports whether flying the approach requires a
// ground-based localizer signal (and hence a CDI source switch away from
// GPS).
func (a ApproachType) IsLocalizerBased() bool {
	return a == ApproachILS || a == ApproachLocalizer
}

// ClassifyApproachType determines the approach type from the procedure
// name, e.g. "ILS RWY 22L" or "RNAV (GPS) Y RWY 13". Note that ILS must
// be checked before LOC since localizer-only minima share charts with the
// full ILS.
func ClassifyApproachType(name string) ApproachType {
	n := strings.ToUpper(name)
	switch {
	case strings.Contains(n, "ILS"):
		return ApproachILS
	case strings.Contains(n, "LOC"):
		return ApproachLocalizer
	case strings.Contains(n, "RNAV"), strings.Contains(n, "GPS"):
		return ApproachRNAV
	case strings.Contains(n, "VOR"):
		return ApproachVOR
	case strings.Contains(n, "NDB"):
		return ApproachNDB
	case strings.Contains(n, "TACAN"):
		return ApproachTACAN
	default:
		return ApproachUnknown
	}
}

///////////////////////////////////////////////////////////////////////////
// PlanSource

// PlanSource records where the current flight plan came from; it is used
// to arbitrate against background refreshes (a synced plan may be
// replaced by a newer fetch, a manually-edited one may not.)
type PlanSource string

const (
	SourceManual   PlanSource = "manual"
	SourceSimBrief PlanSource = "simbrief"
	SourceFile     PlanSource = "file"
	SourceSynced   PlanSource = "synced"
)

// Procedure holds the metadata for a loaded SID/STAR/approach.
type Procedure struct {
	Name       string
	Transition string
	Class      ProcedureClass
	// Approach procedures only:
	Type         ApproachType
	ILSIdent     string  // localizer identifier, e.g. "IJFK"
	ILSFrequency float32 // MHz; 0 = unresolved
}
