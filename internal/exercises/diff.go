package exercises

import "errors"

var (
	ErrLinkRoleAndConfidence       = errors.New("target link cannot carry both role and confidence")
	ErrLinkRoleOrConfidenceMissing = errors.New("target link needs either role or confidence")
	ErrLinkInvalidRole             = errors.New("target link role invalid")
	ErrLinkInvalidConfidence       = errors.New("target link confidence invalid")
)

// TargetLinksDiff is the save plan for a "replace all targets" request:
// upserts for every desired link, deletes for the current links not desired
// anymore. The two batches are applied sequentially and are NOT atomic - a
// reader mid-save can observe a transient superset of the desired links.
type TargetLinksDiff struct {
	Upserts []TargetLink
	Deletes []int64 // target ids
}

// DiffTargetLinks computes the save plan for replacing an exercise's current
// target links with the desired ones.
func DiffTargetLinks(current, desired []TargetLink) TargetLinksDiff {
	desiredByTarget := make(map[int64]TargetLink, len(desired))
	for _, link := range desired {
		desiredByTarget[link.TargetID] = link
	}

	diff := TargetLinksDiff{
		Upserts: make([]TargetLink, 0, len(desired)),
		Deletes: make([]int64, 0),
	}

	// keep the caller's ordering for upserts
	for _, link := range desired {
		diff.Upserts = append(diff.Upserts, link)
	}

	for _, link := range current {
		if _, stillWanted := desiredByTarget[link.TargetID]; !stillWanted {
			diff.Deletes = append(diff.Deletes, link.TargetID)
		}
	}

	return diff
}
