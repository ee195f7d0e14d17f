package goresource

// ListEntitiesRequest is the request payload of a list operation.
//
// Order carries the wire form of the ordering specification: a sequence of
// {"field": "<column>", "ascending": <bool>} mappings. Filters are exact
// match conditions keyed by column name.
type ListEntitiesRequest struct {
	Filters map[string]any   `json:"filters,omitempty"`
	Order   []map[string]any `json:"order,omitempty"`

	PageToken string `json:"page_token,omitempty" query:"page_token"`
	PageSize  int    `json:"page_size,omitempty" query:"page_size" validate:"gte=0"`
}

// ListEntitiesResponse is a single page of formatted entities plus the token
// leading to the following page, empty on the final page.
type ListEntitiesResponse struct {
	NextPageToken string           `json:"next_page_token,omitempty"`
	Items         []map[string]any `json:"items"`
}

// UpdateEntityRequest is the request payload of a partial update. Changes
// holds the new field values keyed by column name; UpdateMask selects which
// fields the update applies to.
type UpdateEntityRequest struct {
	Changes    map[string]any `json:"changes" validate:"required"`
	UpdateMask FieldMask      `json:"update_mask"`
}
