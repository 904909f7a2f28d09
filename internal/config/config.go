// Package config loads and validates the hub's YAML configuration,
// covering the key surface spec.md §6 enumerates: proxy settings, TLS
// material, the input mountpoint list, upload rows, correction-log and
// output settings, and the supervisor's advisory thresholds.
//
// Struct tags follow the teacher's validation style
// (pkg/site.Site's "validate:\"...\"" tags checked with a package-level
// go-playground/validator/v10 instance), adapted here from json to
// yaml tags since the config file is YAML rather than the site log's
// JSON.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// MountPoint is one input stream, given as spec.md §6's
// "//user:pass@host:port/mountpoint" URL.
type MountPoint struct {
	URL string `yaml:"url" validate:"required"`
}

// UploadRow is one outbound upload caster row (spec.md §6's
// uploadMountpointsOut), `host,port,mount,ntripVersion,user,password,
// crs,format,com,sp3File,clkRnxFile,bsxFile,providerId,solutionId,iod`
// split into named fields rather than kept as one comma string.
type UploadRow struct {
	Host         string `yaml:"host" validate:"required"`
	Port         int    `yaml:"port" validate:"required,gt=0,lt=65536"`
	Mount        string `yaml:"mount" validate:"required"`
	NtripVersion string `yaml:"ntripVersion" validate:"required,oneof=1 2 2s"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	CRS          string `yaml:"crs"`
	Format       string `yaml:"format"`
	Comment      string `yaml:"com"`
	Sp3File      string `yaml:"sp3File"`
	ClkRnxFile   string `yaml:"clkRnxFile"`
	BsxFile      string `yaml:"bsxFile"`
	ProviderID   uint32 `yaml:"providerId"`
	SolutionID   uint32 `yaml:"solutionId"`
	IOD          uint32 `yaml:"iod"`
}

// Config is the top-level hub configuration.
type Config struct {
	ProxyHost string `yaml:"proxyHost"`
	ProxyPort int    `yaml:"proxyPort" validate:"omitempty,gt=0,lt=65536"`

	SSLCACertPath     string `yaml:"sslCaCertPath"`
	SSLClientCertPath string `yaml:"sslClientCertPath"`
	SSLIgnoreErrors   bool   `yaml:"sslIgnoreErrors"`

	MountPoints []MountPoint `yaml:"mountPoints" validate:"dive"`

	CorrPath string `yaml:"corrPath"`
	CorrIntr string `yaml:"corrIntr" validate:"omitempty,oneof=1min 2min 5min 10min 15min 30min 1h 1day"`
	CorrPort int    `yaml:"corrPort" validate:"omitempty,gt=0,lt=65536"`

	OutPort  int    `yaml:"outPort" validate:"omitempty,gt=0,lt=65536"`
	OutFile  string `yaml:"outFile"`
	OutWait  int    `yaml:"outWait"`
	OutSampl string `yaml:"outSampl"`

	AdviseObsRate string `yaml:"adviseObsRate" validate:"omitempty,oneof=none 0.1 0.2 0.5 1 5"`
	AdviseFail    int    `yaml:"adviseFail"`
	AdviseReco    int    `yaml:"adviseReco"`
	AdviseScript  string `yaml:"adviseScript"`

	MiscMount    string `yaml:"miscMount"`
	MiscScanRTCM bool   `yaml:"miscScanRTCM"`
	MiscPort     int    `yaml:"miscPort" validate:"omitempty,gt=0,lt=65536"`
	MiscIntr     int    `yaml:"miscIntr"`

	UploadMountpointsOut []UploadRow `yaml:"uploadMountpointsOut" validate:"dive"`

	UploadSamplRtcmEphCorr int `yaml:"uploadSamplRtcmEphCorr" validate:"gte=0"`
	UploadSamplSp3         int `yaml:"uploadSamplSp3" validate:"gte=0"`
	UploadSamplClkRnx      int `yaml:"uploadSamplClkRnx" validate:"gte=0"`
	UploadSamplBiaSnx      int `yaml:"uploadSamplBiaSnx" validate:"gte=0"`
	UploadSamplRtcmEph     int `yaml:"uploadSamplRtcmEph" validate:"gte=0"`
}

// Load reads, parses and validates the YAML config at path. A
// malformed file or an illegal value is a spec.md §7 ConfigError:
// fatal for the subsystem (here, the whole process) that depends on
// it, never silently defaulted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate runs the struct-tag validation rules and fills in the
// documented defaults (spec.md §4.7's 15/5 minute outage/recovery
// thresholds) for a zero AdviseFail or AdviseReco. Upload cadence
// bounds are not applied here; caster.Config applies them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.AdviseFail == 0 {
		c.AdviseFail = 15
	}
	if c.AdviseReco == 0 {
		c.AdviseReco = 5
	}
	return nil
}
