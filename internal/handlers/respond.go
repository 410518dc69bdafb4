package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/musicon/internal/apperror"
	"github.com/sbilibin2017/musicon/internal/request"
)

// StatusSuccess marks successful responses.
const StatusSuccess = "success"

// Response is the success envelope.
// swagger:model Response
type Response struct {
	// Always "success"
	// default: success
	Status string `json:"status"`

	// Number of records in data, for lists
	Results *int `json:"results,omitempty"`

	// Number of records matching the filter, for lists
	Total *int `json:"total,omitempty"`

	// Session token, for authentication responses
	Token string `json:"token,omitempty"`

	// Informational message
	Message string `json:"message,omitempty"`

	// Payload
	Data any `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Response{Status: StatusSuccess, Data: data})
}

// urlID parses the uuid path parameter name.
func urlID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &apperror.CastError{Field: name, Value: raw}
	}
	return id, nil
}

// bind decodes the request body onto dst.
func bind(w http.ResponseWriter, r *http.Request, dst any, drop ...string) error {
	body, err := request.ReadBody(w, r)
	if err != nil {
		return err
	}
	if err := body.Without(drop...).Decode(dst); err != nil {
		return apperror.Wrap(err, http.StatusBadRequest, "Invalid input data. "+err.Error())
	}
	return nil
}

// baseURL is the externally visible origin of r.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
