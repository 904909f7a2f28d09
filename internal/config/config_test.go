package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/de-bkg/gnsshub/caster"
	"github.com/de-bkg/gnsshub/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
mountPoints:
  - url: "//user:pass@caster.example.com:2101/STA100"
corrPath: /var/gnsshub/corr
corrIntr: 15min
corrPort: 6000
outPort: 7000
adviseObsRate: "1"
adviseFail: 20
adviseReco: 10
uploadMountpointsOut:
  - host: upload.example.com
    port: 2101
    mount: STA100
    ntripVersion: "2s"
    user: u
    password: p
uploadSamplRtcmEphCorr: 0
uploadSamplSp3: 0
uploadSamplClkRnx: 0
uploadSamplBiaSnx: 0
uploadSamplRtcmEph: 0
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.MountPoints, 1)
	assert.Equal(t, "//user:pass@caster.example.com:2101/STA100", cfg.MountPoints[0].URL)

	interval, err := cfg.CorrInterval()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, interval)
}

func TestCasterVersionRejectsIllegalNtripVersion(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.UploadMountpointsOut[0].NtripVersion = "3"

	_, err = cfg.UploadMountpointsOut[0].CasterVersion()
	assert.Error(t, err)
}

func TestCasterVersionMapping(t *testing.T) {
	row := UploadRow{NtripVersion: "2s"}
	v, err := row.CasterVersion()
	require.NoError(t, err)
	assert.Equal(t, caster.V2S, v)
}

func TestThresholdsAppliesAdviseMinutes(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	th, err := cfg.Thresholds()
	require.NoError(t, err)
	assert.Equal(t, supervisor.Rate1Hz, th.Rate)
	assert.Equal(t, 20*time.Minute, th.FailThreshold)
	assert.Equal(t, 10*time.Minute, th.RecoveryThreshold)
}

func TestValidateRejectsMissingMountPointURL(t *testing.T) {
	path := writeTemp(t, "mountPoints:\n  - url: \"\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMountPointParseSplitsURL(t *testing.T) {
	mp := MountPoint{URL: "//user:pass@caster.example.com:2101/STA100"}
	parsed, err := mp.Parse()
	require.NoError(t, err)
	assert.Equal(t, "caster.example.com", parsed.Host)
	assert.Equal(t, 2101, parsed.Port)
	assert.Equal(t, "STA100", parsed.Mountpoint)
	assert.Equal(t, "user", parsed.User)
	assert.Equal(t, "pass", parsed.Password)
}

func TestMountPointParseDefaultsPort(t *testing.T) {
	mp := MountPoint{URL: "//caster.example.com/STA100"}
	parsed, err := mp.Parse()
	require.NoError(t, err)
	assert.Equal(t, 2101, parsed.Port)
	assert.Equal(t, "", parsed.User)
}
