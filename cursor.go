package goresource

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
)

var _encoder = base64.StdEncoding

// offsetCutoff caps the offset component of a decoded cursor. The offset is
// used in situations where we have a nearly-unique ordering column (e.g.
// millisecond precision creation timestamps). A hard cap guards against
// malicious tokens causing expensive deep-offset scans.
const offsetCutoff = 1000

// Cursor is the decoded form of a page token: the position anchors the page
// at a value of the primary ordering column, the offset skips rows tied with
// that value, and the reverse flag walks the dataset against the base
// ordering (used for "previous page" tokens).
//
// A nil *Cursor means "first page, forward".
type Cursor struct {
	Offset   int
	Reverse  bool
	Position *string
}

// DecodeCursor attempts to parse a base64-encoded token into *Cursor.
// An empty token decodes to nil. Any parse failure is reported as
// ErrInvalidCursor (which also matches ErrNotFound), never as a lower-level
// parse error.
func DecodeCursor(token string) (*Cursor, error) {
	if len(token) == 0 {
		return nil, nil
	}

	payload, err := _encoder.DecodeString(token)
	if err != nil {
		return nil, errInvalidCursor("malformed base64 token")
	}

	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, errInvalidCursor("malformed token payload")
	}

	cursor := new(Cursor)

	if raw, ok := values["o"]; ok {
		offset, err := strconv.Atoi(raw[0])
		if err != nil || offset < 0 {
			return nil, errInvalidCursor("offset is not a non-negative integer")
		}

		cursor.Offset = min(offset, offsetCutoff)
	}

	if raw, ok := values["r"]; ok {
		reverse, err := strconv.Atoi(raw[0])
		if err != nil {
			return nil, errInvalidCursor("reverse flag is not an integer")
		}

		cursor.Reverse = reverse != 0
	}

	if raw, ok := values["p"]; ok {
		cursor.Position = &raw[0]
	}

	return cursor, nil
}

// String - implements fmt.Stringer. Serializes the cursor into its token
// form: a base64-encoded query string with keys "o", "r" and "p", each
// omitted at its default value. The key order is fixed so that encoding is
// the exact inverse of DecodeCursor for every cursor this package produces.
func (c *Cursor) String() string {
	if c == nil {
		return ""
	}

	parts := make([]string, 0, 3)
	if c.Offset != 0 {
		parts = append(parts, "o="+strconv.Itoa(c.Offset))
	}
	if c.Reverse {
		parts = append(parts, "r=1")
	}
	if c.Position != nil {
		parts = append(parts, "p="+url.QueryEscape(*c.Position))
	}

	return _encoder.EncodeToString([]byte(strings.Join(parts, "&")))
}

// IsEmpty reports whether the cursor carries no paging state at all.
func (c *Cursor) IsEmpty() bool {
	return c == nil || (c.Offset == 0 && !c.Reverse && c.Position == nil)
}

// GetOffset returns the tie-break offset. Safe on a nil receiver.
func (c *Cursor) GetOffset() int {
	if c == nil {
		return 0
	}

	return c.Offset
}

// IsReversed reports whether consuming this cursor walks the dataset against
// the base ordering. Safe on a nil receiver.
func (c *Cursor) IsReversed() bool {
	if c == nil {
		return false
	}

	return c.Reverse
}

// GetPosition returns the anchor value of the primary ordering column, or
// nil for "start of dataset". Safe on a nil receiver.
func (c *Cursor) GetPosition() *string {
	if c == nil {
		return nil
	}

	return c.Position
}
