package models

const (
	// DefaultLimit is the max number of rows that are retrieved from the DB per listing call
	DefaultLimit = 50
)

// ListOptions represents pagination options for list operations
type ListOptions struct {
	Limit          int  `json:"limit"`  // Number of items to return
	Offset         int  `json:"offset"` // Number of items to skip
	IncludeDeleted bool `json:"include_deleted"`
}

// Normalize clamps pagination values into a usable range.
func (o *ListOptions) Normalize() {
	if o.Limit <= 0 || o.Limit > DefaultLimit {
		o.Limit = DefaultLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}
