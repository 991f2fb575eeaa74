package pagination

import "fmt"

// Page is one page of a cursor-paginated result stream. NextCursor is set
// only when HasNext is true and encodes the position of the last item in
// Items.
type Page[T any] struct {
	Items      []*T   `json:"items"`
	HasNext    bool   `json:"has_next"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// NewPage assembles a page from rows fetched with limit+1 semantics: the
// caller asks the store for one row more than the requested page size, and
// the presence of that extra row is what signals another page. The extra row
// is dropped from the result and the next cursor is derived from the last
// *returned* item via cursorFor.
func NewPage[T any](items []*T, limit int, cursorFor func(*T) Cursor) (Page[T], error) {
	if limit < 1 {
		return Page[T]{}, fmt.Errorf("pagination: limit must be at least 1, got %d", limit)
	}

	page := Page[T]{Items: items}
	if len(items) > limit {
		page.HasNext = true
		page.Items = items[:limit]
	}

	if page.HasNext && len(page.Items) > 0 {
		next, err := Encode(cursorFor(page.Items[len(page.Items)-1]))
		if err != nil {
			return Page[T]{}, err
		}
		page.NextCursor = next
	}

	return page, nil
}
