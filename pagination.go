package goresource

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// The cursor pagination implementation is necessarily complex.
// For an overview of the position/offset style we use, see this post:
// http://cramer.io/2011/03/08/building-cursors-for-the-disqus-api

var _schemaCache = &sync.Map{}

// CursorPaginator computes bounded pages of ordered rows of T and derives
// opaque tokens for continued traversal in either direction.
//
// A paginator holds only configuration (page size, ordering, parsed schema)
// and is safe to share across concurrent requests; all per-call state lives
// on the PageResult returned by Paginate.
type CursorPaginator[T any] struct {
	pageSize int
	ordering Orderings
	schema   *schema.Schema
}

// NewCursorPaginator builds a paginator for the model type T.
//
// The ordering specification may be a single OrderBy, a list of OrderBy, a
// single wire-form mapping {"field": ..., "ascending": ...} or a sequence of
// such mappings. Entries naming a column that does not exist on T, or
// lacking an explicit ascending flag, are silently dropped. At least one
// entry must survive: cursor pagination requires a deterministic total
// order, with ties on the primary column broken by the cursor offset.
//
// A wrong-typed specification or an empty surviving ordering is a
// configuration error (ErrInvalidOrdering) and should abort service
// registration rather than be handled per request.
func NewCursorPaginator[T any](pageSize int, ordering any) (*CursorPaginator[T], error) {
	s, err := schema.Parse(new(T), _schemaCache, schema.NamingStrategy{})
	if err != nil {
		return nil, fmt.Errorf("cannot parse model schema: %w", err)
	}

	entries, err := parseOrderingSpec(ordering)
	if err != nil {
		return nil, err
	}

	orderings := make(Orderings, 0, len(entries))
	for _, entry := range entries {
		field := s.LookUpField(entry.Field)
		if field == nil || entry.Ascending == nil {
			continue
		}

		orderings = append(orderings, OrderBy{
			Column:    field.DBName,
			Direction: lo.Ternary(*entry.Ascending, DirectionASC, DirectionDESC),
		})
	}

	if err = orderings.validate(); err != nil {
		return nil, fmt.Errorf("%w: no usable ordering column: %w", ErrInvalidOrdering, err)
	}

	return &CursorPaginator[T]{
		pageSize: pageSize,
		ordering: orderings,
		schema:   s,
	}, nil
}

// Ordering returns the normalized ordering applied by this paginator.
func (p *CursorPaginator[T]) Ordering() Orderings {
	if p == nil {
		return nil
	}

	return p.ordering
}

// PageSize returns the configured page size.
func (p *CursorPaginator[T]) PageSize() int {
	if p == nil {
		return 0
	}

	return p.pageSize
}

// Paginate decodes pageToken and fetches the corresponding page from db in a
// single range query: pageSize+1 rows (the extra row detects whether a
// following page exists) starting at the cursor offset past the positional
// filter.
//
// Reverse cursors run the same forward algorithm against the field-wise
// inverted ordering; the page is flipped back into presentation order before
// it is returned.
func (p *CursorPaginator[T]) Paginate(db *gorm.DB, pageToken string) (*PageResult[T], error) {
	cursor, err := DecodeCursor(pageToken)
	if err != nil {
		return nil, err
	}

	offset := cursor.GetOffset()
	reverse := cursor.IsReversed()
	position := cursor.GetPosition()

	// Cursor pagination always enforces an ordering.
	ordering := p.ordering
	if reverse {
		ordering = ordering.Reversed()
	}
	query := ordering.Apply(db)

	// If we have a cursor with a fixed position then filter by that. Only
	// the primary ordering column takes part in the filter; the remaining
	// columns are tie-break columns, handled by the cursor offset.
	if position != nil {
		primary := p.ordering[0]
		if p.schema.LookUpField(primary.Column) == nil {
			return nil, fmt.Errorf("%w: unknown ordering column '%s'", ErrNotFound, primary.Column)
		}

		// Test for: (cursor reversed) XOR (ordering reversed).
		operator := OperatorGT
		if cursor.IsReversed() != (primary.Direction == DirectionDESC) {
			operator = OperatorLT
		}

		query = query.Where(
			fmt.Sprintf("%s %s ?", primary.Column, operator),
			parsePositionValue(*position),
		)
	}

	var rows []T
	if err = query.Offset(offset).Limit(p.pageSize + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := slices.Clone(rows[:min(len(rows), p.pageSize)])

	// Determine the position of the final row following the page.
	var (
		hasFollowingPosition bool
		followingPosition    *string
	)
	if len(rows) > len(page) {
		following, err := p.position(rows[len(rows)-1])
		if err != nil {
			return nil, err
		}

		hasFollowingPosition = true
		followingPosition = lo.ToPtr(following)
	}

	// The reverse query ran against the inverted ordering, so flip the page
	// back before handing it to the caller.
	if reverse {
		slices.Reverse(page)
	}

	result := &PageResult[T]{
		Items:     page,
		paginator: p,
		cursor:    cursor,
	}

	if reverse {
		result.hasNext = position != nil || offset > 0
		result.hasPrevious = hasFollowingPosition
		if result.hasNext {
			result.nextPosition = position
		}
		if result.hasPrevious {
			result.previousPosition = followingPosition
		}
	} else {
		result.hasNext = hasFollowingPosition
		result.hasPrevious = position != nil || offset > 0
		if result.hasNext {
			result.nextPosition = followingPosition
		}
		if result.hasPrevious {
			result.previousPosition = position
		}
	}

	return result, nil
}

// position extracts the stringified value of the primary ordering column
// from a row. Dict-like rows use key lookup, model structs go through the
// parsed schema.
func (p *CursorPaginator[T]) position(row T) (string, error) {
	column := p.ordering[0].Column

	value, ok := readerFor(row, p.schema).ReadField(row, column)
	if !ok {
		return "", fmt.Errorf("%w: row has no ordering column '%s'", ErrNotFound, column)
	}

	return formatPosition(value), nil
}

// PageResult is the outcome of a single Paginate call: the page itself plus
// the paging state needed to derive next/previous tokens.
type PageResult[T any] struct {
	// Items result elements, in presentation order.
	Items []T

	paginator *CursorPaginator[T]
	cursor    *Cursor

	hasNext          bool
	hasPrevious      bool
	nextPosition     *string
	previousPosition *string
}

// HasNext reports whether a page exists after this one in presentation order.
func (r *PageResult[T]) HasNext() bool {
	return r != nil && r.hasNext
}

// HasPrevious reports whether a page exists before this one in presentation order.
func (r *PageResult[T]) HasPrevious() bool {
	return r != nil && r.hasPrevious
}

// NextPageToken derives the token for the following page, or "" if there is
// none.
//
// A cursor naively anchored at the boundary row's position would re-include
// or skip rows whenever consecutive rows tie on the primary ordering column,
// so the boundary tie-run is folded into the cursor offset instead: scan the
// page backwards counting rows that tie with the boundary position and
// anchor at the first row whose position differs.
func (r *PageResult[T]) NextPageToken() (string, error) {
	if !r.HasNext() {
		return "", nil
	}

	var compare *string
	if r.cursor.IsReversed() && r.cursor.GetOffset() != 0 && len(r.Items) > 0 {
		// We are reversing direction with an offset cursor, so the first
		// position we find cannot be used as a marker.
		boundary, err := r.paginator.position(r.Items[len(r.Items)-1])
		if err != nil {
			return "", err
		}
		compare = lo.ToPtr(boundary)
	} else {
		compare = r.nextPosition
	}

	offset := 0
	var anchor *string
	found := false

	for i := len(r.Items) - 1; i >= 0; i-- {
		position, err := r.paginator.position(r.Items[i])
		if err != nil {
			return "", err
		}

		if compare == nil || position != *compare {
			// This row and the row following it have different positions:
			// usable as a marker.
			anchor = lo.ToPtr(position)
			found = true
			break
		}

		// Same position as the row following it; fold it into the offset
		// and keep seeking.
		compare = lo.ToPtr(position)
		offset++
	}

	if !found {
		// No unique position in the entire page.
		switch {
		case !r.hasPrevious:
			// First page: offset over the whole page, nothing to anchor at yet.
			offset = r.paginator.pageSize
			anchor = nil
		case r.cursor.IsReversed():
			// The direction change introduces a paging artifact where we
			// would skip forward a few extra rows; absorb it.
			offset = 0
			anchor = r.previousPosition
		default:
			offset = r.cursor.GetOffset() + r.paginator.pageSize
			anchor = r.previousPosition
		}
	}

	cursor := &Cursor{Offset: offset, Reverse: false, Position: anchor}

	return cursor.String(), nil
}

// PreviousPageToken derives the token for the preceding page, or "" if there
// is none. The emitted cursor is a reverse cursor: consuming it walks the
// dataset against the base ordering. See NextPageToken for the tie-run
// handling.
func (r *PageResult[T]) PreviousPageToken() (string, error) {
	if !r.HasPrevious() {
		return "", nil
	}

	var compare *string
	if r.cursor != nil && !r.cursor.Reverse && r.cursor.Offset != 0 && len(r.Items) > 0 {
		// We are reversing direction with an offset cursor, so the first
		// position we find cannot be used as a marker.
		boundary, err := r.paginator.position(r.Items[0])
		if err != nil {
			return "", err
		}
		compare = lo.ToPtr(boundary)
	} else {
		compare = r.previousPosition
	}

	offset := 0
	var anchor *string
	found := false

	for _, item := range r.Items {
		position, err := r.paginator.position(item)
		if err != nil {
			return "", err
		}

		if compare == nil || position != *compare {
			anchor = lo.ToPtr(position)
			found = true
			break
		}

		compare = lo.ToPtr(position)
		offset++
	}

	if !found {
		// No unique position in the entire page.
		switch {
		case !r.hasNext:
			// Final page: offset over the whole page, nothing to anchor at yet.
			offset = r.paginator.pageSize
			anchor = nil
		case r.cursor.IsReversed():
			offset = r.cursor.GetOffset() + r.paginator.pageSize
			anchor = r.nextPosition
		default:
			// The direction change introduces a paging artifact where we
			// would skip back a few extra rows; absorb it.
			offset = 0
			anchor = r.nextPosition
		}
	}

	cursor := &Cursor{Offset: offset, Reverse: true, Position: anchor}

	return cursor.String(), nil
}
