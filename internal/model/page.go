package model

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is one page of a server-side collection.
// Count is the size of the full result set, not of Results.
type Page struct {
	Count   int        `json:"count"`
	Results []Document `json:"results"`
}

// EmptyPage is the collection shown when nothing could be loaded.
func EmptyPage() Page {
	return Page{Count: 0, Results: []Document{}}
}

// PageQuery selects a page. Page is 0-based.
type PageQuery struct {
	Page int
	Size int
	Sort string
}

// Normalize clamps the query into the accepted range.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 0 {
		q.Page = 0
	}
	if q.Size <= 0 {
		q.Size = DefaultPageSize
	}
	if q.Size > MaxPageSize {
		q.Size = MaxPageSize
	}
	return q
}

// Offset is the number of rows preceding the page.
func (q PageQuery) Offset() int {
	return q.Page * q.Size
}
