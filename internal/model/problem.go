package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Status   int       `json:"status"`
	Detail   string    `json:"detail,omitempty"`
	Instance string    `json:"instance,omitempty"`
	Code     ErrorKind `json:"code,omitempty"`
}

func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as the response.
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

const problemBase = "https://eventhub.local/errors/"

// NewProblem builds problem details for a domain error kind.
func NewProblem(status int, kind ErrorKind, detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemBase + string(kind),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Code:   kind,
	}
}

func NewBadRequestError(detail string) *ProblemDetails {
	return NewProblem(http.StatusBadRequest, KindValidation, detail)
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return &ProblemDetails{
		Type:   problemBase + "internal",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: detail,
	}
}
