// Package httputil provides HTTP handler utilities: the response envelope,
// store-error to status-code mapping, JSON decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/guluwater/navadmin/pkg/nav"
)

// Envelope is the uniform response shape consumed by the admin UI.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// PageData is the paginated payload carried inside an Envelope.
type PageData struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteData writes a success envelope around data
func WriteData(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, Envelope{Success: true, Data: data})
}

// WriteMessage writes a success envelope carrying only a message
func WriteMessage(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, Envelope{Success: true, Message: message})
}

// WritePage writes a success envelope around one page of items
func WritePage(w http.ResponseWriter, items interface{}, total int64, page, pageSize int) error {
	return WriteData(w, http.StatusOK, PageData{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// WriteErrorMessage writes a failure envelope with the given status
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Envelope{Success: false, Message: message})
}

// WriteBadRequest writes a failure envelope with status 400
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteStoreError maps a store error kind to its status code and writes the
// failure envelope. Only the kind and message cross the HTTP boundary.
func WriteStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch nav.KindOf(err) {
	case nav.KindNotFound:
		status = http.StatusNotFound
	case nav.KindConflict:
		status = http.StatusConflict
	case nav.KindValidation:
		status = http.StatusBadRequest
	case nav.KindTransientStore:
		status = http.StatusServiceUnavailable
	}

	message := err.Error()
	var navErr *nav.Error
	if errors.As(err, &navErr) {
		message = navErr.Message
	}
	WriteErrorMessage(w, status, message)
}
