package types

// SuccessEnvelope wraps every successful response body.
type SuccessEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every failed response body. Debug is only populated
// outside production.
type ErrorEnvelope struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Error   APIError   `json:"error"`
	Debug   *DebugInfo `json:"debug,omitempty"`
}

type DebugInfo struct {
	Cause string   `json:"cause"`
	Chain []string `json:"chain,omitempty"`
}

// PageMeta describes an offset-paginated list.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

type PagedResult[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}
