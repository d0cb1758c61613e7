package domain

// SpiritFilter narrows a catalog query. Zero values mean "no condition".
type SpiritFilter struct {
	Status      Status
	Category    string // matches category OR subcategory (legacy aliasing)
	Subcategory string
	Country     string
	Distillery  string

	// SearchTerm and MissingImage cannot be pushed down to the store;
	// they force a bounded full-scan with in-memory filtering.
	SearchTerm   string
	MissingImage bool
}

// NeedsScan reports whether the filter contains predicates the store
// cannot evaluate server-side.
func (f SpiritFilter) NeedsScan() bool {
	return f.SearchTerm != "" || f.MissingImage
}

// Pagination selects a page of an ordered result set. Pages are 1-based.
type Pagination struct {
	Page     int
	PageSize int
}

// Offset returns the number of items preceding the requested page.
func (p Pagination) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// PageResult is one page of spirits. The store computes no authoritative
// count: when TotalIsLowerBound is set, Total means "at least this many".
type PageResult struct {
	Items             []Spirit
	Page              int
	PageSize          int
	Total             int
	TotalIsLowerBound bool
}
