package models

import "time"

// ===== VALIDATION RESPONSES =====

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Error            string                    `json:"error"`
	Message          string                    `json:"message"`
	Details          interface{}               `json:"details,omitempty"`
	Timestamp        time.Time                 `json:"timestamp"`
	Path             string                    `json:"path"`
	ValidationErrors []ValidationErrorResponse `json:"validation_errors,omitempty"`
}
