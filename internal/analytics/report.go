package analytics

import "github.com/Angrypuncake/Gym-Logger-sub000/internal/targets"

// VolumeReport is the rendered analytics payload for one target kind:
// totals in sort order, the resolved selection and the selected target's
// weekly series.
type VolumeReport struct {
	Kind             targets.Kind  `json:"kind"`
	Muscles          []MuscleTotal `json:"muscles,omitempty"`
	Tendons          []TendonTotal `json:"tendons,omitempty"`
	SelectedTargetID *int64        `json:"selectedTargetId,omitempty"`
	Series           []WeekPoint   `json:"series,omitempty"`
}

func MuscleVolumeReport(rows []MuscleRow, filter, sortKey string, previousSelection *int64) VolumeReport {
	totals := MuscleTotals(rows, filter, sortKey)
	ids := make([]int64, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.TargetID)
	}
	selected := SelectTarget(ids, previousSelection)

	report := VolumeReport{
		Kind:             targets.KindMuscleGroup,
		Muscles:          totals,
		SelectedTargetID: selected,
	}
	if selected != nil {
		report.Series = MuscleWeekly(rows, *selected)
	}
	return report
}

func TendonVolumeReport(rows []TendonRow, filter, sortKey string, previousSelection *int64) VolumeReport {
	totals := TendonTotals(rows, filter, sortKey)
	ids := make([]int64, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.TargetID)
	}
	selected := SelectTarget(ids, previousSelection)

	report := VolumeReport{
		Kind:             targets.KindTendon,
		Tendons:          totals,
		SelectedTargetID: selected,
	}
	if selected != nil {
		report.Series = TendonWeekly(rows, *selected)
	}
	return report
}
