// Package goresource binds GORM data models to HTTP service methods:
// CRUD handlers, list endpoints with cursor-based pagination, relationship
// resolution and field-mask driven partial updates.
//
// goresource has one algorithmic core and a thin binding layer around it:
//   - CursorPaginator: hybrid keyset(position)+offset pagination with
//     bidirectional traversal, stable ordering under ties and opaque
//     resumable tokens.
//   - Resource: maps a model struct to get/create/update/delete/list
//     operations and formats entities into response messages.
//   - Service: mounts a Resource onto an echo router group.
//
// Key concepts:
//   - Cursor: an opaque (offset, reverse, position) triple serialized as a
//     base64 token. The position anchors the page at a value of the primary
//     ordering column; the offset skips rows tied with that value.
//   - PageResult: the materialized page plus everything needed to derive
//     next/previous tokens. Paginators hold no per-request state and are
//     safe for concurrent use.
//   - Orderings: defines multi-column ordering with explicit directions.
//   - Registry: resolves relationships declared by resource name.
//
// See examples/ for runnable usage.
package goresource
