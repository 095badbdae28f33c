package api

// ErrorResponse is written for conflicts and authentication failures.
type ErrorResponse struct {
	Error string `json:"error" description:"Error message"`
}

// CreatedResponse identifies a newly created role, permission or account.
type CreatedResponse struct {
	ID   int64  `json:"id" description:"Entity ID"`
	Name string `json:"name" description:"Entity name"`
}

// NamesResponse is a list of role, permission or action names.
type NamesResponse struct {
	Items []string `json:"items" description:"Names"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
