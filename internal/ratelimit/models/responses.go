package models

// UsageExceededResponse is the API response when an analysis allowance is spent.
type UsageExceededResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"` // seconds
}
