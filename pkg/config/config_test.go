package config

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testYAML = `
link:
  url: tcp://localhost:4000
  ack-timeout: 500ms
radio:
  url: mqtt://broker:1883/zw/
transport:
  retry-max: 4
  wait-for-host: true
node:
  node-id: 5
  home-id: 0xc0ffee00
`

func writeTestFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestConfigRead(t *testing.T) {
	conf := Default()
	require.NoError(t, conf.Read(strings.NewReader(testYAML)))
	require.Equal(t, "tcp://localhost:4000", conf.Link.URL)
	require.Equal(t, Duration(500*time.Millisecond), conf.Link.AckTimeout)
	require.Equal(t, Default().Link.ByteTimeout, conf.Link.ByteTimeout)
	require.Equal(t, 4, conf.Transport.RetryMax)
	require.True(t, conf.Transport.WaitForHost)
	require.Equal(t, Default().Transport.CallbackCapacity, conf.Transport.CallbackCapacity)
	require.Equal(t, byte(5), conf.Node.NodeID)
	require.Equal(t, uint32(0xc0ffee00), conf.Node.HomeID)
	require.NoError(t, conf.Validate())
}

func TestConfigReadEmpty(t *testing.T) {
	conf := Default()
	require.NoError(t, conf.Read(strings.NewReader("")))
	require.Equal(t, Default(), conf)
}

func TestConfigReadBadDuration(t *testing.T) {
	conf := Default()
	require.Error(t, conf.Read(strings.NewReader("interval: soon\n")))
}

func TestConfigWrite(t *testing.T) {
	conf := Default()
	var buf bytes.Buffer
	require.NoError(t, conf.Write(&buf))
	require.Contains(t, buf.String(), "ack-timeout: 1.6s")

	loaded := Config{}
	require.NoError(t, loaded.Read(&buf))
	require.Equal(t, conf, loaded)
}

func TestConfigLayers(t *testing.T) {
	path := writeTestFile(t, testYAML)
	env := map[string]string{EnvRadioURL: "loopback://"}

	var flagged Config
	var flagPath string
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	bindFlags(fs, &flagged, &flagPath)
	require.NoError(t, fs.Parse([]string{"-node-id", "9", "-ack-timeout", "2s", "-home-id", "c1020304"}))

	conf, err := loadFile(path, func(name string) string { return env[name] }, fs, &flagged)
	require.NoError(t, err)
	require.Equal(t, "tcp://localhost:4000", conf.Link.URL)
	require.Equal(t, "loopback://", conf.Radio.URL)
	require.Equal(t, Duration(2*time.Second), conf.Link.AckTimeout)
	require.Equal(t, byte(9), conf.Node.NodeID)
	require.Equal(t, uint32(0xc1020304), conf.Node.HomeID)
	require.Equal(t, 4, conf.Transport.RetryMax)
}

func TestConfigValidate(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"link url", func(c *Config) { c.Link.URL = "" }},
		{"ack timeout", func(c *Config) { c.Link.AckTimeout = 0 }},
		{"capacity", func(c *Config) { c.Transport.CallbackCapacity = 0 }},
		{"max payload", func(c *Config) { c.Transport.MaxPayload = 300 }},
		{"node id", func(c *Config) { c.Node.NodeID = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conf := Default()
			require.NoError(t, conf.Validate())
			tc.modify(&conf)
			require.Error(t, conf.Validate())
		})
	}
}
