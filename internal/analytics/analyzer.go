// Package analytics aggregates weekly training volume per anatomical
// target. The aggregation is pure: identical raw rows and parameters always
// produce identical output, all state lives in the raw rows.
package analytics

import (
	"sort"
	"strings"

	"github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"
)

// MuscleRow is one raw row of the weekly muscle metrics view: one
// (target, week, role) bucket.
type MuscleRow struct {
	VaultID    string
	TargetID   int64
	TargetName string
	WeekStart  string // "2006-01-02", fixed width
	Role       *targets.Role
	SetCount   int
	Reps       int
	TonnageKg  float64
}

// TendonRow is one raw row of the weekly tendon metrics view.
type TendonRow struct {
	VaultID      string
	TargetID     int64
	TargetName   string
	WeekStart    string
	Confidence   *targets.Confidence
	SetCount     int
	IsoSec       int
	IsoLoadKgSec float64
}

type MuscleTotal struct {
	TargetID      int64   `json:"targetId"`
	TargetName    string  `json:"targetName"`
	Sets          int     `json:"sets"`
	Reps          int     `json:"reps"`
	TonnageKg     float64 `json:"tonnageKg"`
	EffectiveSets float64 `json:"effectiveSets"`
}

type TendonTotal struct {
	TargetID        int64    `json:"targetId"`
	TargetName      string   `json:"targetName"`
	Sets            int      `json:"sets"`
	IsoSec          int      `json:"isoSec"`
	IsoLoadKgSec    float64  `json:"isoLoadKgSec"`
	AvgIsoLoadKg    *float64 `json:"avgIsoLoadKg"`
	EffectiveIsoSec float64  `json:"effectiveIsoSec"`
}

// WeekPoint is one week of a selected target's series.
type WeekPoint struct {
	WeekStart string  `json:"weekStart"`
	Sets      int     `json:"sets"`
	Reps      int     `json:"reps,omitempty"`
	TonnageKg float64 `json:"tonnageKg,omitempty"`
	IsoSec    int     `json:"isoSec,omitempty"`
}

// RoleWeight converts a muscle role into its set-count weight. Unknown or
// missing roles count in full.
func RoleWeight(role *targets.Role) float64 {
	if role == nil {
		return 1
	}
	switch *role {
	case targets.RolePrimary:
		return 1
	case targets.RoleSecondary:
		return 0.5
	case targets.RoleStabilizer:
		return 0.25
	}
	return 1
}

// ConfidenceWeight converts a tendon exposure confidence into its weight.
func ConfidenceWeight(confidence *targets.Confidence) float64 {
	if confidence == nil {
		return 1.0
	}
	switch *confidence {
	case targets.ConfidenceHigh:
		return 1.0
	case targets.ConfidenceMed:
		return 0.67
	case targets.ConfidenceLow:
		return 0.33
	}
	return 1.0
}

// MuscleTotals folds raw weekly rows into per-target totals across all
// weeks and roles, applying the role weight to each row's set count for
// effective sets.
func MuscleTotals(rows []MuscleRow, filter, sortKey string) []MuscleTotal {
	byTarget := make(map[int64]*MuscleTotal)
	var order []int64
	for _, row := range rows {
		if !matchesFilter(row.TargetName, filter) {
			continue
		}
		total, ok := byTarget[row.TargetID]
		if !ok {
			total = &MuscleTotal{TargetID: row.TargetID, TargetName: row.TargetName}
			byTarget[row.TargetID] = total
			order = append(order, row.TargetID)
		}
		total.Sets += row.SetCount
		total.Reps += row.Reps
		total.TonnageKg += row.TonnageKg
		total.EffectiveSets += float64(row.SetCount) * RoleWeight(row.Role)
	}

	totals := make([]MuscleTotal, 0, len(order))
	for _, id := range order {
		totals = append(totals, *byTarget[id])
	}
	sortMuscleTotals(totals, sortKey)
	return totals
}

// TendonTotals folds raw weekly rows into per-target totals. Tendon sets
// are unweighted, confidence only weights the effective iso seconds.
// avg_iso_load is recomputed after every accumulated row so it is valid at
// any point of the fold.
func TendonTotals(rows []TendonRow, filter, sortKey string) []TendonTotal {
	byTarget := make(map[int64]*TendonTotal)
	var order []int64
	for _, row := range rows {
		if !matchesFilter(row.TargetName, filter) {
			continue
		}
		total, ok := byTarget[row.TargetID]
		if !ok {
			total = &TendonTotal{TargetID: row.TargetID, TargetName: row.TargetName}
			byTarget[row.TargetID] = total
			order = append(order, row.TargetID)
		}
		total.Sets += row.SetCount
		total.IsoSec += row.IsoSec
		total.IsoLoadKgSec += row.IsoLoadKgSec
		total.EffectiveIsoSec += float64(row.IsoSec) * ConfidenceWeight(row.Confidence)

		if total.IsoSec > 0 {
			avg := total.IsoLoadKgSec / float64(total.IsoSec)
			total.AvgIsoLoadKg = &avg
		} else {
			total.AvgIsoLoadKg = nil
		}
	}

	totals := make([]TendonTotal, 0, len(order))
	for _, id := range order {
		totals = append(totals, *byTarget[id])
	}
	sortTendonTotals(totals, sortKey)
	return totals
}

// MuscleWeekly re-aggregates the raw rows of one target by week. Weeks
// sort ascending by the week-start string, lexicographic order is correct
// because week_start is a fixed-width ISO date.
func MuscleWeekly(rows []MuscleRow, targetID int64) []WeekPoint {
	byWeek := make(map[string]*WeekPoint)
	for _, row := range rows {
		if row.TargetID != targetID {
			continue
		}
		point, ok := byWeek[row.WeekStart]
		if !ok {
			point = &WeekPoint{WeekStart: row.WeekStart}
			byWeek[row.WeekStart] = point
		}
		point.Sets += row.SetCount
		point.Reps += row.Reps
		point.TonnageKg += row.TonnageKg
	}
	return sortedWeeks(byWeek)
}

func TendonWeekly(rows []TendonRow, targetID int64) []WeekPoint {
	byWeek := make(map[string]*WeekPoint)
	for _, row := range rows {
		if row.TargetID != targetID {
			continue
		}
		point, ok := byWeek[row.WeekStart]
		if !ok {
			point = &WeekPoint{WeekStart: row.WeekStart}
			byWeek[row.WeekStart] = point
		}
		point.Sets += row.SetCount
		point.IsoSec += row.IsoSec
	}
	return sortedWeeks(byWeek)
}

// SelectTarget keeps a previous selection when it survived filtering,
// otherwise falls back to the first target of the sorted list. Empty list
// means no selection.
func SelectTarget(sortedIDs []int64, previous *int64) *int64 {
	if len(sortedIDs) == 0 {
		return nil
	}
	if previous != nil {
		for _, id := range sortedIDs {
			if id == *previous {
				return previous
			}
		}
	}
	first := sortedIDs[0]
	return &first
}

func matchesFilter(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

func sortMuscleTotals(totals []MuscleTotal, sortKey string) {
	key := func(t MuscleTotal) float64 {
		switch sortKey {
		case "reps":
			return float64(t.Reps)
		case "effective_sets":
			return t.EffectiveSets
		case "tonnage":
			return t.TonnageKg
		default: // "sets" and anything unrecognized
			return float64(t.Sets)
		}
	}
	sort.SliceStable(totals, func(i, j int) bool {
		ki, kj := key(totals[i]), key(totals[j])
		if ki != kj {
			return ki > kj
		}
		if totals[i].Sets != totals[j].Sets {
			return totals[i].Sets > totals[j].Sets
		}
		return totals[i].TargetName < totals[j].TargetName
	})
}

func sortTendonTotals(totals []TendonTotal, sortKey string) {
	key := func(t TendonTotal) float64 {
		switch sortKey {
		case "iso":
			return float64(t.IsoSec)
		case "iso_load":
			if t.AvgIsoLoadKg == nil {
				return 0
			}
			return *t.AvgIsoLoadKg
		default:
			return float64(t.Sets)
		}
	}
	sort.SliceStable(totals, func(i, j int) bool {
		ki, kj := key(totals[i]), key(totals[j])
		if ki != kj {
			return ki > kj
		}
		if totals[i].Sets != totals[j].Sets {
			return totals[i].Sets > totals[j].Sets
		}
		return totals[i].TargetName < totals[j].TargetName
	})
}

func sortedWeeks(byWeek map[string]*WeekPoint) []WeekPoint {
	weeks := make([]string, 0, len(byWeek))
	for week := range byWeek {
		weeks = append(weeks, week)
	}
	sort.Strings(weeks)
	points := make([]WeekPoint, 0, len(weeks))
	for _, week := range weeks {
		points = append(points, *byWeek[week])
	}
	return points
}
