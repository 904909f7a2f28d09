package caster

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net/textproto"
	"strings"
	"time"
)

// handshake performs the protocol-specific request and validates the
// caster's response, per spec.md §4.8's Handshaking state.
func (c *Caster) handshake() error {
	switch c.cfg.Version {
	case V1:
		return c.handshakeV1()
	default:
		return c.handshakeV2()
	}
}

// handshakeV1 sends the legacy NTRIP 1.0 SOURCE request. There is no
// structured response to parse: per spec.md §4.8, a caster accepting
// the upload starts sending raw payload bytes straight away, so any
// successful write is treated as Handshaking -> Streaming.
func (c *Caster) handshakeV1() error {
	req := fmt.Sprintf("SOURCE %s /%s\r\nSource-Agent: %s\r\n\r\n",
		c.cfg.Password, c.cfg.Mountpoint, c.cfg.userAgent())
	if _, err := c.wr.WriteString(req); err != nil {
		return err
	}
	return c.wr.Flush()
}

// handshakeV2 sends the NTRIP 2.0 POST request with the chunked
// transfer-encoding headers spec.md §4.8 names, then reads the status
// line and headers back, failing on anything but 2xx.
func (c *Caster) handshakeV2() error {
	auth := base64.StdEncoding.EncodeToString([]byte(c.cfg.Username + ":" + c.cfg.Password))

	var b strings.Builder
	fmt.Fprintf(&b, "POST /%s HTTP/1.1\r\n", c.cfg.Mountpoint)
	fmt.Fprintf(&b, "Host: %s\r\n", c.cfg.Host)
	fmt.Fprintf(&b, "Ntrip-Version: Ntrip/2.0\r\n")
	fmt.Fprintf(&b, "Authorization: Basic %s\r\n", auth)
	fmt.Fprintf(&b, "User-Agent: %s\r\n", c.cfg.userAgent())
	fmt.Fprintf(&b, "Connection: close\r\n")
	fmt.Fprintf(&b, "Transfer-Encoding: chunked\r\n")
	fmt.Fprintf(&b, "\r\n")

	if _, err := c.wr.WriteString(b.String()); err != nil {
		return err
	}
	if err := c.wr.Flush(); err != nil {
		return err
	}

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.dialTimeout()))
	defer c.conn.SetReadDeadline(time.Time{})

	reader := bufio.NewReader(c.conn)
	tp := textproto.NewReader(reader)
	status, err := tp.ReadLine()
	if err != nil {
		return fmt.Errorf("read status line: %w", err)
	}
	if _, err := tp.ReadMIMEHeader(); err != nil {
		return fmt.Errorf("read response headers: %w", err)
	}

	parts := strings.SplitN(status, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[1], "2") {
		return fmt.Errorf("caster rejected upload: %s", status)
	}
	return nil
}

// stream is the Streaming state: it wakes on the configured cadence,
// drains whatever the producer has queued, and writes it as a single
// chunk. It returns once the connection drops or stop fires.
func (c *Caster) stream(stop <-chan struct{}, ticker *time.Ticker) {
	for {
		select {
		case <-stop:
			c.writeClose()
			return
		case <-ticker.C:
			payload := c.buf.drain()
			if len(payload) == 0 {
				continue
			}
			if err := c.writeChunk(payload); err != nil {
				return
			}
		}
	}
}

// writeChunk emits payload as one chunked-transfer-encoding chunk for
// v2/v2s, or as raw bytes for v1 (which has no chunk framing).
func (c *Caster) writeChunk(payload []byte) error {
	if c.cfg.Version == V1 {
		if _, err := c.wr.Write(payload); err != nil {
			return err
		}
		return c.wr.Flush()
	}

	if _, err := fmt.Fprintf(c.wr, "%x\r\n", len(payload)); err != nil {
		return err
	}
	if _, err := c.wr.Write(payload); err != nil {
		return err
	}
	if _, err := c.wr.WriteString("\r\n"); err != nil {
		return err
	}
	return c.wr.Flush()
}

// writeClose emits the zero-length terminating chunk on a graceful
// v2/v2s shutdown, per spec.md §5's "chunked terminator may be omitted
// on abrupt failure" — here the shutdown is not abrupt, so it is sent.
func (c *Caster) writeClose() {
	if c.cfg.Version == V1 || c.wr == nil {
		return
	}
	fmt.Fprintf(c.wr, "0\r\n\r\n")
	c.wr.Flush()
}
