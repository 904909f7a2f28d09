// Command gnsshub runs the real-time GNSS correction-stream hub: it
// pulls RTCM3/SSR streams from one or more input mountpoints, decodes
// them, supervises their latency and outage state, fans the decoded
// artifacts out to a dispatcher hub, and feeds that hub's events into
// a rolling correction log and any configured upload casters.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/de-bkg/gnsshub/caster"
	"github.com/de-bkg/gnsshub/dispatcher"
	"github.com/de-bkg/gnsshub/ephemeris"
	"github.com/de-bkg/gnsshub/gnsstime"
	"github.com/de-bkg/gnsshub/internal/config"
	"github.com/de-bkg/gnsshub/internal/corrlog"
	"github.com/de-bkg/gnsshub/ssr"
	"github.com/de-bkg/gnsshub/stream"
	"github.com/de-bkg/gnsshub/supervisor"
)

// Exit codes the core raises to its host process (spec.md §6).
const (
	exitOK            = 0
	exitNoMountpoints = 3
	exitAskedToQuit   = 4
)

func main() {
	app := &cli.App{
		Version:  "v0.1.0",
		Compiled: time.Now(),
		Authors: []*cli.Author{
			{Name: "BKG GNSS Tooling"},
		},
		HelpName:  "gnsshub",
		Usage:     "real-time GNSS correction-stream hub",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the hub's YAML configuration",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:  "nav",
				Usage: "RINEX navigation file(s) to preload into the ephemeris registry",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if len(cfg.MountPoints) == 0 {
		return cli.Exit("no mountpoints configured", exitNoMountpoints)
	}

	registry := ephemeris.NewRegistry()
	for _, navPath := range c.StringSlice("nav") {
		if err := loadNav(registry, navPath); err != nil {
			log.Printf("nav %s: %v", navPath, err)
		}
	}

	hub := dispatcher.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Print("gnsshub: asked to quit")
		cancel()
	}()

	var wg sync.WaitGroup

	for _, mp := range cfg.MountPoints {
		parsed, err := mp.Parse()
		if err != nil {
			log.Printf("mountpoint %s: %v", mp.URL, err)
			continue
		}

		th, err := cfg.Thresholds()
		if err != nil {
			return cli.Exit(err, exitAskedToQuit)
		}
		sup := supervisor.New(parsed.Mountpoint, th, dispatcher.SupervisorAdvisories{Hub: hub}, reconnectLogger)

		wg.Add(2)
		go func(parsed config.ParsedMountPoint, sup *supervisor.Supervisor) {
			defer wg.Done()
			runMountPoint(ctx, parsed, hub, sup, registry)
		}(parsed, sup)
		go func(sup *supervisor.Supervisor) {
			defer wg.Done()
			tickSupervisor(ctx, sup)
		}(sup)
	}

	if cfg.CorrPath != "" {
		interval, err := cfg.CorrInterval()
		if err != nil {
			return cli.Exit(err, exitAskedToQuit)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runCorrlog(ctx, hub, cfg.CorrPath, interval)
		}()
	}

	for _, row := range cfg.UploadMountpointsOut {
		wg.Add(1)
		go func(row config.UploadRow) {
			defer wg.Done()
			runUpload(ctx, row, cfg, hub)
		}(row)
	}

	<-ctx.Done()
	wg.Wait()
	return cli.Exit("gnsshub: asked to quit", exitAskedToQuit)
}

func reconnectLogger(staId string) {
	log.Printf("%s: reconnect requested (no bytes within the reconnect timeout)", staId)
}

func loadNav(registry *ephemeris.Registry, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("nav: open %s: %w", path, err)
	}
	defer f.Close()

	dec, err := ephemeris.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("nav: %s: %w", path, err)
	}
	for dec.Next() {
		registry.Put(dec.Ephemeris())
	}
	return dec.Err()
}

// mountListener wraps dispatcher.StreamListener with the supervisor
// bookkeeping (RecordBatch/RecordDecode) spec.md §4.7 ties to every
// decoded batch and decode warning, so a mountpoint's outage/corrupted
// state is driven directly off its own stream decoder's callbacks.
type mountListener struct {
	dispatcher.StreamListener
	sup *supervisor.Supervisor
}

var _ stream.Listener = mountListener{}

func (l mountListener) OnOrbitCorrections(staId string, batch stream.Batch[*ssr.OrbitCorrection]) {
	l.sup.RecordBatch(batch.Time, time.Now())
	l.sup.RecordDecode(true, time.Now())
	l.StreamListener.OnOrbitCorrections(staId, batch)
}

func (l mountListener) OnClockCorrections(staId string, batch stream.Batch[*ssr.ClockCorrection]) {
	l.sup.RecordBatch(batch.Time, time.Now())
	l.sup.RecordDecode(true, time.Now())
	l.StreamListener.OnClockCorrections(staId, batch)
}

func (l mountListener) OnCodeBiases(staId string, batch stream.Batch[*ssr.SatCodeBias]) {
	l.sup.RecordBatch(batch.Time, time.Now())
	l.sup.RecordDecode(true, time.Now())
	l.StreamListener.OnCodeBiases(staId, batch)
}

func (l mountListener) OnPhaseBiases(staId string, batch stream.Batch[*ssr.SatPhaseBias]) {
	l.sup.RecordBatch(batch.Time, time.Now())
	l.sup.RecordDecode(true, time.Now())
	l.StreamListener.OnPhaseBiases(staId, batch)
}

func (l mountListener) OnVtec(staId string, batch stream.Batch[*ssr.VtecModel]) {
	l.sup.RecordBatch(batch.Time, time.Now())
	l.sup.RecordDecode(true, time.Now())
	l.StreamListener.OnVtec(staId, batch)
}

func (l mountListener) OnWarning(staId string, msg string) {
	l.sup.RecordDecode(false, time.Now())
	l.StreamListener.OnWarning(staId, msg)
}

// runMountPoint pulls one input mountpoint via an NTRIP client and
// drives its stream.Decoder until ctx is cancelled.
func runMountPoint(ctx context.Context, parsed config.ParsedMountPoint, hub *dispatcher.Hub, sup *supervisor.Supervisor, registry *ephemeris.Registry) {
	staId := parsed.Mountpoint
	listener := mountListener{StreamListener: dispatcher.StreamListener{Hub: hub}, sup: sup}
	decoder := stream.NewDecoder(staId, listener)
	_ = registry // reserved for diagnostic position computation against fresh ephemerides

	addr := fmt.Sprintf("http://%s:%d", parsed.Host, parsed.Port)
	puller, err := caster.NewPuller(addr, parsed.Mountpoint, parsed.User, parsed.Password, false)
	if err != nil {
		log.Printf("%s: %v", staId, err)
		return
	}

	puller.Sink = func(chunk []byte) {
		now := time.Now()
		sup.RecordBytes(now)
		hub.PublishRawBytes(staId, chunk)
		decoder.Decode(chunk, gnsstime.FromTime(now), now)
	}

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	puller.Run(stop)
}

// tickSupervisor drives one mountpoint's Supervisor.Tick on a 1-second
// cadence until ctx is cancelled.
func tickSupervisor(ctx context.Context, sup *supervisor.Supervisor) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			sup.Tick(t)
		}
	}
}

// runCorrlog subscribes to hub and appends every decoded artifact batch
// to a per-station corrlog.Writer, rolling on interval.
func runCorrlog(ctx context.Context, hub *dispatcher.Hub, dir string, interval time.Duration) {
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub.ID)

	writers := make(map[string]*corrlog.Writer)
	defer func() {
		for staId, w := range writers {
			if err := w.Close(); err != nil {
				log.Printf("corrlog: %s: close: %v", staId, err)
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events:
			if !ok {
				return
			}
			w, known := writers[ev.StaID]
			if !known {
				w = corrlog.NewWriter(dir, ev.StaID, interval)
				writers[ev.StaID] = w
			}

			now := time.Now()
			var writeErr error
			switch ev.Kind {
			case dispatcher.KindOrbitCorrections:
				writeErr = w.WriteOrbitBatch(now, ev.OrbitCorrections)
			case dispatcher.KindClockCorrections:
				writeErr = w.WriteClockBatch(now, ev.ClockCorrections)
			case dispatcher.KindCodeBiases:
				writeErr = w.WriteCodeBiasBatch(now, ev.CodeBiases)
			case dispatcher.KindPhaseBiases:
				writeErr = w.WritePhaseBiasBatch(now, ev.PhaseBiases)
			case dispatcher.KindVtec:
				writeErr = w.WriteVtec(now, ev.Vtec)
			}
			if writeErr != nil {
				log.Printf("corrlog: %s: %v", ev.StaID, writeErr)
			}
		}
	}
}

// runUpload drives one outbound upload caster row. There is no RTCM/SSR
// re-encoder in this codebase (only decoders), so the upload path
// relays the matching input mountpoint's raw bytes rather than
// reconstructing frames from decoded corrections; see DESIGN.md.
func runUpload(ctx context.Context, row config.UploadRow, cfg *config.Config, hub *dispatcher.Hub) {
	version, err := row.CasterVersion()
	if err != nil {
		log.Printf("upload %s: %v", row.Mount, err)
		return
	}

	cc := caster.Config{
		Host:            row.Host,
		Port:            row.Port,
		Mountpoint:      row.Mount,
		Version:         version,
		Username:        row.User,
		Password:        row.Password,
		ProxyHost:       cfg.ProxyHost,
		ProxyPort:       cfg.ProxyPort,
		SSLIgnoreErrors: cfg.SSLIgnoreErrors,
		SSLCACertPath:   cfg.SSLCACertPath,
	}
	if version == caster.V2S {
		cc.SSLClientCertPath = fmt.Sprintf("%s.%d.crt", row.Host, row.Port)
		cc.SSLClientKeyPath = fmt.Sprintf("%s.%d.key", row.Host, row.Port)
	}

	up := caster.New(cc, func(s caster.State) {
		log.Printf("upload %s: %s", row.Mount, s)
	})

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub.ID)

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub.Events:
				if !ok {
					return
				}
				if ev.Kind == dispatcher.KindRawBytes && ev.StaID == row.Mount {
					up.Write(ev.RawBytes)
				}
			}
		}
	}()

	up.Run(stop)
}
