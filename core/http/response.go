package http

import (
	"log"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/valyala/bytebufferpool"

	"github.com/katana-web/katana/core/ringbuf"
)

// Response is a fully-buffered HTTP/1.1 response. The entire body is held in
// memory before the status line is written; chunked response encoding is not
// supported.
type Response struct {
	Status  int
	Headers HeaderMap
	Body    []byte
}

// OK builds a 200 response with the given body and content type.
func OK(body, contentType string) *Response {
	resp := &Response{Status: 200, Body: []byte(body)}
	if contentType != "" {
		resp.Headers.AddField(FieldContentType, contentType)
	}
	return resp
}

// Text builds a text/plain response.
func Text(status int, body string) *Response {
	resp := &Response{Status: status, Body: []byte(body)}
	resp.Headers.AddField(FieldContentType, "text/plain")
	return resp
}

// JSON builds an application/json response from v.
func JSON(status int, v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("response: marshal failed: %v", err)
		return Error(InternalServerError("response serialization failed"))
	}
	resp := &Response{Status: status, Body: data}
	resp.Headers.AddField(FieldContentType, "application/json")
	return resp
}

// NoContent builds an empty-bodied response.
func NoContent(status int) *Response {
	return &Response{Status: status}
}

// SetHeader sets (replacing) a response header.
func (r *Response) SetHeader(name, value string) {
	r.Headers.Set(name, value)
}

// SerializeInto appends the wire form of the response to buf:
// status line, headers, Content-Length, blank line, body.
func (r *Response) SerializeInto(buf *ringbuf.Buffer) {
	head := bytebufferpool.Get()
	head.B = append(head.B, "HTTP/1.1 "...)
	head.B = strconv.AppendInt(head.B, int64(r.Status), 10)
	head.B = append(head.B, ' ')
	head.B = append(head.B, StatusText(r.Status)...)
	head.B = append(head.B, '\r', '\n')
	for i := 0; i < r.Headers.Len(); i++ {
		name, value := r.Headers.EntryAt(i)
		head.B = append(head.B, name...)
		head.B = append(head.B, ':', ' ')
		head.B = append(head.B, value...)
		head.B = append(head.B, '\r', '\n')
	}
	head.B = append(head.B, "Content-Length: "...)
	head.B = strconv.AppendInt(head.B, int64(len(r.Body)), 10)
	head.B = append(head.B, '\r', '\n', '\r', '\n')
	buf.Append(head.B)
	bytebufferpool.Put(head)
	buf.Append(r.Body)
}
