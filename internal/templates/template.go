package templates

type Template struct {
	ID        int64  `json:"id"`
	VaultID   string `json:"vaultId"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`

	Items []Item `json:"items"`
}

// Item is one planned exercise within a template. TargetSets nil means
// "use the caller-supplied default" at instantiation time.
type Item struct {
	ID         int64 `json:"id"`
	TemplateID int64 `json:"templateId"`
	ExerciseID int64 `json:"exerciseId"`
	SortOrder  int   `json:"sortOrder"`
	TargetSets *int  `json:"targetSets,omitempty"`
}
