package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/de-bkg/gnsshub/caster"
	"github.com/de-bkg/gnsshub/supervisor"
)

// ParsedMountPoint is a MountPoint URL broken into the fields the
// puller/decoder wiring needs.
type ParsedMountPoint struct {
	Host       string
	Port       int
	Mountpoint string
	User       string
	Password   string
}

// Parse breaks a MountPoint's "//user:pass@host:port/mountpoint" URL
// into its components, per spec.md §6's "Input mountpoint URL" format.
// Go's net/url already treats a scheme-less "//host/path" string as
// having an authority component, so no hand-written splitting is
// needed.
func (m MountPoint) Parse() (ParsedMountPoint, error) {
	u, err := url.Parse(m.URL)
	if err != nil {
		return ParsedMountPoint{}, fmt.Errorf("config: illegal mountpoint url %q: %w", m.URL, err)
	}
	host := u.Hostname()
	if host == "" {
		return ParsedMountPoint{}, fmt.Errorf("config: illegal mountpoint url %q: missing host", m.URL)
	}

	port := 2101
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return ParsedMountPoint{}, fmt.Errorf("config: illegal mountpoint url %q: bad port: %w", m.URL, err)
		}
		port = n
	}

	pmp := ParsedMountPoint{
		Host:       host,
		Port:       port,
		Mountpoint: strings.TrimPrefix(u.Path, "/"),
	}
	if u.User != nil {
		pmp.User = u.User.Username()
		pmp.Password, _ = u.User.Password()
	}
	return pmp, nil
}

// CasterVersion maps an UploadRow's "1"/"2"/"2s" NtripVersion string
// onto caster.Version.
func (r UploadRow) CasterVersion() (caster.Version, error) {
	switch r.NtripVersion {
	case "1":
		return caster.V1, nil
	case "2":
		return caster.V2, nil
	case "2s":
		return caster.V2S, nil
	default:
		return 0, fmt.Errorf("config: illegal ntripVersion %q", r.NtripVersion)
	}
}

// ObservationRate maps the adviseObsRate string onto
// supervisor.ObservationRate.
func (c *Config) ObservationRate() (supervisor.ObservationRate, error) {
	switch c.AdviseObsRate {
	case "", "none":
		return supervisor.RateNone, nil
	case "0.1":
		return supervisor.Rate0_1Hz, nil
	case "0.2":
		return supervisor.Rate0_2Hz, nil
	case "0.5":
		return supervisor.Rate0_5Hz, nil
	case "1":
		return supervisor.Rate1Hz, nil
	case "5":
		return supervisor.Rate5Hz, nil
	default:
		return 0, fmt.Errorf("config: illegal adviseObsRate %q", c.AdviseObsRate)
	}
}

// Thresholds builds a supervisor.Thresholds from the advise* fields
// (AdviseFail/AdviseReco are in minutes per spec.md §6).
func (c *Config) Thresholds() (supervisor.Thresholds, error) {
	rate, err := c.ObservationRate()
	if err != nil {
		return supervisor.Thresholds{}, err
	}
	t := supervisor.DefaultThresholds()
	t.Rate = rate
	if c.AdviseFail > 0 {
		t.FailThreshold = time.Duration(c.AdviseFail) * time.Minute
	}
	if c.AdviseReco > 0 {
		t.RecoveryThreshold = time.Duration(c.AdviseReco) * time.Minute
	}
	return t, nil
}

// corrIntrDurations maps the corrIntr enum strings onto their
// time.Duration, per spec.md §6's roll-interval choice set.
var corrIntrDurations = map[string]time.Duration{
	"1min":  time.Minute,
	"2min":  2 * time.Minute,
	"5min":  5 * time.Minute,
	"10min": 10 * time.Minute,
	"15min": 15 * time.Minute,
	"30min": 30 * time.Minute,
	"1h":    time.Hour,
	"1day":  24 * time.Hour,
}

// CorrInterval returns the parsed roll interval for CorrIntr, defaulting
// to one hour when unset.
func (c *Config) CorrInterval() (time.Duration, error) {
	if c.CorrIntr == "" {
		return time.Hour, nil
	}
	d, ok := corrIntrDurations[c.CorrIntr]
	if !ok {
		return 0, fmt.Errorf("config: illegal corrIntr %q", c.CorrIntr)
	}
	return d, nil
}
