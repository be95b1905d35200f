package middleware

import (
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"

	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/router"
)

const compressMinSize = 512

// Compress negotiates Accept-Encoding and compresses response bodies with
// brotli or gzip. Bodies below a small threshold, already-encoded responses
// and clients without a supported encoding pass through untouched. The whole
// body is buffered anyway (chunked responses are unsupported), so
// compression happens in one shot before serialization.
func Compress() router.Middleware {
	return func(req *http.Request, ctx *router.Context, next router.Next) (*http.Response, error) {
		resp, err := next()
		if err != nil || resp == nil || len(resp.Body) < compressMinSize {
			return resp, err
		}
		if _, already := resp.Headers.Get(http.FieldContentEncoding); already {
			return resp, nil
		}
		accept, ok := req.Headers.Get(http.FieldAcceptEncoding)
		if !ok {
			return resp, nil
		}
		switch {
		case acceptsEncoding(accept, "br"):
			compressBody(resp, "br", func(buf *bytebufferpool.ByteBuffer) error {
				w := brotli.NewWriter(buf)
				if _, err := w.Write(resp.Body); err != nil {
					return err
				}
				return w.Close()
			})
		case acceptsEncoding(accept, "gzip"):
			compressBody(resp, "gzip", func(buf *bytebufferpool.ByteBuffer) error {
				w := gzip.NewWriter(buf)
				if _, err := w.Write(resp.Body); err != nil {
					return err
				}
				return w.Close()
			})
		}
		return resp, nil
	}
}

func acceptsEncoding(accept, encoding string) bool {
	for accept != "" {
		var token string
		if i := strings.IndexByte(accept, ','); i >= 0 {
			token, accept = accept[:i], accept[i+1:]
		} else {
			token, accept = accept, ""
		}
		if i := strings.IndexByte(token, ';'); i >= 0 {
			token = token[:i]
		}
		if strings.Trim(token, " \t") == encoding {
			return true
		}
	}
	return false
}

func compressBody(resp *http.Response, encoding string, fn func(*bytebufferpool.ByteBuffer) error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := fn(buf); err != nil || buf.Len() >= len(resp.Body) {
		return
	}
	resp.Body = append([]byte(nil), buf.B...)
	resp.SetHeader("Content-Encoding", encoding)
	resp.SetHeader("Vary", "Accept-Encoding")
}
