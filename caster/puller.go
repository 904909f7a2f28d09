package caster

import (
	"io"
	"log"
	"time"

	"github.com/de-bkg/gnsshub/pkg/ntrip"
)

// Puller reads a mountpoint from an upstream caster and hands the raw
// bytes it receives to a sink, reconnecting on failure. It adapts the
// teacher's pull-mode pkg/ntrip.Client (built for GET-based downloads)
// into the read side of the hub, mirroring Config/Version rather than
// duplicating them, since pulling and uploading share the same caster
// address, mountpoint and credentials shape.
type Puller struct {
	client *ntrip.Client
	mount  string

	// Sink receives each read's bytes as they arrive. It is called
	// from the Puller's own goroutine; it must not block for long.
	Sink func([]byte)

	retryDelay time.Duration
}

// NewPuller returns a Puller for mountpoint mount on the caster at addr
// ("http://host:port" or "https://host:port").
func NewPuller(addr, mount, username, password string, unsafeSSL bool) (*Puller, error) {
	client, err := ntrip.NewClient(addr, ntrip.Options{
		Username:  username,
		Password:  password,
		UnsafeSSL: unsafeSSL,
		UserAgent: "NTRIP gnsshub/1.0",
	})
	if err != nil {
		return nil, err
	}
	return &Puller{client: client, mount: mount, retryDelay: 5 * time.Second}, nil
}

// Run blocks, streaming bytes to Sink and reconnecting with a fixed
// delay until stop is closed. Each reconnect issues a fresh GetStream;
// pkg/ntrip's client sends each request once and does not retry.
func (p *Puller) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		body, err := p.client.GetStream(p.mount)
		if err != nil {
			log.Printf("puller %s: connect failed: %v", p.mount, err)
			if !p.wait(stop) {
				return
			}
			continue
		}

		p.readLoop(body, stop)
		body.Close()

		select {
		case <-stop:
			return
		default:
		}
		if !p.wait(stop) {
			return
		}
	}
}

func (p *Puller) readLoop(body io.ReadCloser, stop <-chan struct{}) {
	buf := make([]byte, 4096)
	for {
		select {
		case <-stop:
			return
		default:
		}
		n, err := body.Read(buf)
		if n > 0 && p.Sink != nil {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			p.Sink(chunk)
		}
		if err != nil {
			if err != io.EOF {
				log.Printf("puller %s: read error: %v", p.mount, err)
			}
			return
		}
	}
}

func (p *Puller) wait(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return false
	case <-time.After(p.retryDelay):
		return true
	}
}
