package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response body shared by every endpoint of both services.
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes one page of a filtered listing.
type Pagination struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
	Pages   int64 `json:"pages"`
}

// NewPagination computes the page count as ceil(total / perPage).
func NewPagination(page, perPage int, total int64) *Pagination {
	var pages int64
	if perPage > 0 && total > 0 {
		pages = (total-1)/int64(perPage) + 1
	}
	return &Pagination{Page: page, PerPage: perPage, Total: total, Pages: pages}
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"success":false,"message":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// Page writes a successful envelope carrying a page of results.
func Page(w http.ResponseWriter, message string, data any, p *Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data, Pagination: p})
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}
