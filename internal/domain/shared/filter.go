package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filter holds paging and free-text search for list queries
type Filter struct {
	Page     int
	PageSize int
	Search   string
}

// Normalize clamps Page to at least 1 and PageSize into [1, 100], defaulting to 20
func (f Filter) Normalize() Filter {
	f.Page = max(f.Page, 1)
	switch {
	case f.PageSize < 1:
		f.PageSize = defaultPageSize
	case f.PageSize > maxPageSize:
		f.PageSize = maxPageSize
	}
	return f
}

// Offset returns the row offset of the current page
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
