//go:build linux

package server

import (
	"errors"
	"io"

	"golang.org/x/sys/unix"

	"github.com/katana-web/katana/core/arena"
	"github.com/katana-web/katana/core/http"
	"github.com/katana-web/katana/core/reactor"
	"github.com/katana-web/katana/core/ringbuf"
	"github.com/katana-web/katana/core/router"
	"github.com/katana-web/katana/core/socket"
)

const readChunk = 4096

// conn is the per-connection state machine. It is owned exclusively by the
// reactor worker that accepted it; nothing here is synchronized.
type conn struct {
	srv      *Server
	r        *reactor.Reactor
	sock     socket.TCPSocket
	readBuf  *ringbuf.Buffer
	writeBuf *ringbuf.Buffer
	arena    *arena.Arena
	parser   *http.Parser
	ctx      *router.Context
	watch    *reactor.Watch

	// closeRequested remembers a Connection: close (or drain) across a
	// deferred write completion.
	closeRequested bool
}

func newConn(srv *Server, r *reactor.Reactor, fd int) *conn {
	a := arena.New(0)
	c := &conn{
		srv:      srv,
		r:        r,
		sock:     socket.FromFD(fd),
		readBuf:  ringbuf.New(readChunk),
		writeBuf: ringbuf.New(readChunk),
		arena:    a,
		parser:   http.NewParser(a),
		ctx:      router.NewContext(a),
	}
	return c
}

func wouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

// close tears the connection down: watch first, so no callback can fire into
// freed state, then the counters.
func (c *conn) close(count func() uint64, reason string) {
	if c.watch != nil {
		c.watch.Reset()
	}
	if count != nil {
		maybeLogClose(reason, count())
	}
}

// flushWrite drains the write buffer to the socket.
// Returns: done (buffer empty), yielded (re-armed and returned to the loop),
// closed (connection torn down).
type flushResult uint8

const (
	flushDone flushResult = iota
	flushYielded
	flushClosed
)

func (c *conn) flushWrite() flushResult {
	for !c.writeBuf.Empty() {
		data := c.writeBuf.ReadableSpan()
		n, err := c.sock.Write(data)
		if err != nil {
			if wouldBlock(err) {
				c.watch.Modify(reactor.Writable)
				return flushYielded
			}
			cl := &c.srv.metrics.Close
			c.close(func() uint64 { return cl.WriteError.Add(1) }, "write_error")
			return flushClosed
		}
		if n == 0 {
			break
		}
		c.writeBuf.Consume(n)
	}
	if !c.writeBuf.Empty() {
		c.watch.Modify(reactor.Writable)
		return flushYielded
	}
	return flushDone
}

// handle runs the read/parse/dispatch/write cycle. It is the watch callback;
// every invocation happens on the reactor's own thread.
func (c *conn) handle(reactor.EventType) {
	cl := &c.srv.metrics.Close

	// Finish a deferred write first.
	if !c.writeBuf.Empty() {
		switch c.flushWrite() {
		case flushYielded, flushClosed:
			return
		}
		if c.closeRequested {
			c.close(func() uint64 { return cl.CloseHeader.Add(1) }, "close_header")
			return
		}
		c.resetForNextRequest()
		if c.readBuf.Empty() {
			c.watch.Modify(reactor.Readable)
			return
		}
	}

	for {
		if c.readBuf.Empty() {
			if !c.fillReadBuffer() {
				return
			}
		}

		status := c.parser.Parse(c.readBuf.ReadableSpan())
		if status == http.ParseInvalid {
			// Best effort: serialize the 400 and push what the socket
			// takes, then close.
			resp := http.Error(http.BadRequest("invalid HTTP request"))
			resp.SerializeInto(c.writeBuf)
			for !c.writeBuf.Empty() {
				n, err := c.sock.Write(c.writeBuf.ReadableSpan())
				if err != nil || n == 0 {
					break
				}
				c.writeBuf.Consume(n)
			}
			c.close(func() uint64 { return cl.ParseError.Add(1) }, "parse_error")
			return
		}

		if !c.parser.IsComplete() {
			if !c.fillReadBuffer() {
				return
			}
			continue
		}

		c.readBuf.Consume(c.parser.BytesParsed())

		req := c.parser.Request()
		c.ctx.Arena = c.arena
		c.ctx.Params.Reset()
		resp := router.DispatchOrProblem(c.srv.dispatch, req, c.ctx)

		c.srv.metrics.Requests.Total.Add(1)
		if resp.Status >= 400 {
			c.srv.metrics.Requests.Errors.Add(1)
		}
		if c.srv.onRequest != nil {
			c.srv.onRequest(req, resp)
		}

		closeConn := req.WantsClose()
		drained := false
		if c.r.Draining() {
			// Graceful shutdown: finish this cycle, then close.
			closeConn = true
			drained = true
		}
		if _, has := resp.Headers.Get(http.FieldConnection); !has {
			if closeConn {
				resp.Headers.AddField(http.FieldConnection, "close")
			} else {
				resp.Headers.AddField(http.FieldConnection, "keep-alive")
			}
		}
		c.closeRequested = closeConn

		resp.SerializeInto(c.writeBuf)

		switch c.flushWrite() {
		case flushYielded, flushClosed:
			return
		}

		if closeConn {
			if drained {
				c.close(func() uint64 { return cl.Drained.Add(1) }, "drained")
			} else {
				c.close(func() uint64 { return cl.CloseHeader.Add(1) }, "close_header")
			}
			return
		}

		c.resetForNextRequest()
		if c.readBuf.Empty() {
			c.watch.Modify(reactor.Readable)
			return
		}
		// Pipelined bytes already buffered: parse the next request now.
	}
}

// fillReadBuffer reads once from the socket into the read buffer. Reports
// false when the caller must return to the event loop (EAGAIN, EOF or
// error); the connection is already re-armed or closed accordingly.
func (c *conn) fillReadBuffer() bool {
	cl := &c.srv.metrics.Close
	span := c.readBuf.WritableSpan(readChunk)
	n, err := c.sock.Read(span)
	if err != nil {
		if wouldBlock(err) {
			c.watch.Modify(reactor.Readable)
			return false
		}
		if errors.Is(err, io.EOF) {
			c.close(func() uint64 { return cl.ReadEOF.Add(1) }, "read_eof")
			return false
		}
		c.close(func() uint64 { return cl.ReadError.Add(1) }, "read_error")
		return false
	}
	c.readBuf.Commit(n)
	return true
}

// resetForNextRequest recycles the per-request state: arena, parser and
// write buffer. Keep-alive requests after the first allocate almost nothing.
func (c *conn) resetForNextRequest() {
	c.closeRequested = false
	c.arena.Reset()
	c.parser.Reset(c.arena)
	c.writeBuf.Clear()
}
