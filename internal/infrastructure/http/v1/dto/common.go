package dto

// SuccessResponse is the generic success envelope.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// IDResponse carries a created entity's ID.
type IDResponse struct {
	ID string `json:"id"`
}
