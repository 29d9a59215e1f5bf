package router

import (
	"encoding/json"
	"net/http"
)

// Response is the uniform JSON envelope every endpoint returns.
// StatusCode is mirrored into the HTTP status line.
type Response struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       any    `json:"data"`

	headers   http.Header
	closeConn bool
}

// Sent is returned by handlers that write the response body
// themselves (file downloads). The dispatcher writes nothing more.
var Sent = sent{}

type sent struct{}

// NewResponse creates a response with an explicit status code
func NewResponse(statusCode int, message string, data any) *Response {
	return &Response{
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
	}
}

// OK returns a 200 response
func OK(message string, data any) *Response {
	return NewResponse(http.StatusOK, message, data)
}

// Created returns a 201 response
func Created(message string, data any) *Response {
	return NewResponse(http.StatusCreated, message, data)
}

// BadRequest returns a 400 response
func BadRequest(message string) *Response {
	return NewResponse(http.StatusBadRequest, message, nil)
}

// Unauthorized returns a 401 response
func Unauthorized(message string) *Response {
	return NewResponse(http.StatusUnauthorized, message, nil)
}

// NotFound returns a 404 response
func NotFound(message string) *Response {
	return NewResponse(http.StatusNotFound, message, nil)
}

// MethodNotAllowed returns a 405 response
func MethodNotAllowed(message string) *Response {
	return NewResponse(http.StatusMethodNotAllowed, message, nil)
}

// ServiceUnavailable returns a 503 response
func ServiceUnavailable(message string) *Response {
	return NewResponse(http.StatusServiceUnavailable, message, nil)
}

// WithHeader attaches an extra response header
func (r *Response) WithHeader(key, value string) *Response {
	if r.headers == nil {
		r.headers = http.Header{}
	}
	r.headers.Add(key, value)
	return r
}

// WithConnectionClose marks the response to close the underlying connection
func (r *Response) WithConnectionClose() *Response {
	r.closeConn = true
	return r
}

// Write serializes the envelope to the response writer
func (r *Response) Write(w http.ResponseWriter) error {
	for key, values := range r.headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	if r.closeConn {
		w.Header().Set("Connection", "close")
	}
	w.Header().Set("Content-Type", "application/json")

	statusCode := r.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(r)
}
