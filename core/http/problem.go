package http

import (
	"log"

	json "github.com/goccy/go-json"
)

// ProblemDetails is the RFC 7807 error envelope used for every
// framework-generated error (400, 404, 405, 406, 415, 500).
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func problem(status int, title, detail string) ProblemDetails {
	return ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}
}

// BadRequest builds a 400 problem.
func BadRequest(detail string) ProblemDetails {
	return problem(400, "Bad Request", detail)
}

// NotFound builds a 404 problem.
func NotFound(detail string) ProblemDetails {
	return problem(404, "Not Found", detail)
}

// MethodNotAllowed builds a 405 problem.
func MethodNotAllowed(detail string) ProblemDetails {
	return problem(405, "Method Not Allowed", detail)
}

// NotAcceptable builds a 406 problem.
func NotAcceptable(detail string) ProblemDetails {
	return problem(406, "Not Acceptable", detail)
}

// UnsupportedMediaType builds a 415 problem.
func UnsupportedMediaType(detail string) ProblemDetails {
	return problem(415, "Unsupported Media Type", detail)
}

// InternalServerError builds a 500 problem.
func InternalServerError(detail string) ProblemDetails {
	return problem(500, "Internal Server Error", detail)
}

// Error renders a problem as an application/problem+json response.
func Error(p ProblemDetails) *Response {
	body, err := json.Marshal(p)
	if err != nil {
		// Marshalling a flat struct of strings cannot realistically fail;
		// fall back to a bare status if it somehow does.
		log.Printf("problem: marshal failed: %v", err)
		body = []byte(`{"type":"about:blank","title":"Internal Server Error","status":500}`)
		p.Status = 500
	}
	resp := &Response{Status: p.Status, Body: body}
	resp.Headers.AddField(FieldContentType, "application/problem+json")
	return resp
}
