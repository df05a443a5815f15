// Package config provides the settings of the bridge daemon.
//
// Settings are layered: built-in defaults, the YAML file named by
// -config or SERIALAPI_CONFIG, environment variables, then command line
// flags which are explicitly set.
package config

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	fx "github.com/robotalks/serialapi/pkg/framework"
	"github.com/robotalks/serialapi/pkg/link"
	"github.com/robotalks/serialapi/pkg/serialapi"
	"github.com/robotalks/serialapi/pkg/transport"
)

// Environment variables.
const (
	EnvConfig   = "SERIALAPI_CONFIG"
	EnvLinkURL  = "SERIALAPI_LINK_URL"
	EnvRadioURL = "SERIALAPI_RADIO_URL"
)

// Duration is a time.Duration written as a Go duration string in YAML.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("line %d: %v", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// LinkConfig configures the host link.
type LinkConfig struct {
	// URL of the port, e.g. serial:///dev/ttyUSB0?baud=115200.
	URL         string   `yaml:"url"`
	AckTimeout  Duration `yaml:"ack-timeout"`
	ByteTimeout Duration `yaml:"byte-timeout"`
}

// RadioConfig configures the radio network.
type RadioConfig struct {
	// URL is loopback:// or mqtt://host:port/topic-prefix.
	URL string `yaml:"url"`
}

// Config is the configuration of the bridge daemon.
type Config struct {
	Link      LinkConfig         `yaml:"link"`
	Radio     RadioConfig        `yaml:"radio"`
	Interval  Duration           `yaml:"interval"`
	Transport transport.Config   `yaml:"transport"`
	Node      serialapi.NodeInfo `yaml:"node"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Link: LinkConfig{
			URL:         "serial:///dev/ttyUSB0",
			AckTimeout:  Duration(link.DefaultAckTimeout),
			ByteTimeout: Duration(link.DefaultByteTimeout),
		},
		Radio:     RadioConfig{URL: "loopback://"},
		Interval:  Duration(fx.DefaultInterval),
		Transport: transport.DefaultConfig(),
		Node:      serialapi.DefaultNodeInfo(),
	}
}

var (
	defaultConfig = Default()
	configPath    string
	flagSet       *flag.FlagSet
)

func init() {
	applyEnv(&defaultConfig, os.Getenv)
	configPath = os.Getenv(EnvConfig)
}

func applyEnv(conf *Config, getenv func(string) string) {
	if val := getenv(EnvLinkURL); val != "" {
		conf.Link.URL = val
	}
	if val := getenv(EnvRadioURL); val != "" {
		conf.Radio.URL = val
	}
}

// flagAppliers copy the value of a flag from src to dst.
var flagAppliers = map[string]func(dst, src *Config){
	"link":          func(dst, src *Config) { dst.Link.URL = src.Link.URL },
	"ack-timeout":   func(dst, src *Config) { dst.Link.AckTimeout = src.Link.AckTimeout },
	"byte-timeout":  func(dst, src *Config) { dst.Link.ByteTimeout = src.Link.ByteTimeout },
	"radio":         func(dst, src *Config) { dst.Radio.URL = src.Radio.URL },
	"interval":      func(dst, src *Config) { dst.Interval = src.Interval },
	"retry-max":     func(dst, src *Config) { dst.Transport.RetryMax = src.Transport.RetryMax },
	"wait-for-host": func(dst, src *Config) { dst.Transport.WaitForHost = src.Transport.WaitForHost },
	"node-id":       func(dst, src *Config) { dst.Node.NodeID = src.Node.NodeID },
	"home-id":       func(dst, src *Config) { dst.Node.HomeID = src.Node.HomeID },
}

// SetupFlags sets up command line flags on fs.
func SetupFlags(fs *flag.FlagSet) {
	flagSet = fs
	bindFlags(fs, &defaultConfig, &configPath)
}

func bindFlags(fs *flag.FlagSet, conf *Config, path *string) {
	fs.StringVar(path, "config", *path, "YAML config file.")
	fs.StringVar(&conf.Link.URL, "link", conf.Link.URL, "Host link URL (serial://, tcp://, tcp-listen://, ws://).")
	fs.DurationVar((*time.Duration)(&conf.Link.AckTimeout), "ack-timeout", time.Duration(conf.Link.AckTimeout), "ACK timeout.")
	fs.DurationVar((*time.Duration)(&conf.Link.ByteTimeout), "byte-timeout", time.Duration(conf.Link.ByteTimeout), "Inter-byte timeout.")
	fs.StringVar(&conf.Radio.URL, "radio", conf.Radio.URL, "Radio network URL (loopback://, mqtt://).")
	fs.DurationVar((*time.Duration)(&conf.Interval), "interval", time.Duration(conf.Interval), "Tick interval of the transport engine.")
	fs.IntVar(&conf.Transport.RetryMax, "retry-max", conf.Transport.RetryMax, "Retransmissions of an unacknowledged frame.")
	fs.BoolVar(&conf.Transport.WaitForHost, "wait-for-host", conf.Transport.WaitForHost, "Hold notifications until the host is seen.")
	fs.Var((*byteValue)(&conf.Node.NodeID), "node-id", "Node id of the bridge.")
	fs.Var((*hexValue)(&conf.Node.HomeID), "home-id", "Home id in hex, derived from machine id when 0.")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load builds the Config after flags are parsed.
func Load() (*Config, error) {
	if configPath == "" {
		return NewConfig(), nil
	}
	return loadFile(configPath, os.Getenv, flagSet, &defaultConfig)
}

func loadFile(path string, getenv func(string) string, fs *flag.FlagSet, flagged *Config) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	conf := Default()
	if err := conf.Read(f); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	applyEnv(&conf, getenv)
	if fs != nil {
		fs.Visit(func(f *flag.Flag) {
			if fn := flagAppliers[f.Name]; fn != nil {
				fn(&conf, flagged)
			}
		})
	}
	return &conf, nil
}

// MustLoad loads Config and fails on error.
func MustLoad() *Config {
	conf, err := Load()
	if err == nil {
		err = conf.Validate()
	}
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// Read merges YAML from r into c.
func (c *Config) Read(r io.Reader) error {
	err := yaml.NewDecoder(r).Decode(c)
	if err == io.EOF {
		return nil
	}
	return err
}

// Write writes c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// Validate checks the settings are usable.
func (c *Config) Validate() error {
	if c.Link.URL == "" {
		return fmt.Errorf("link URL is required")
	}
	if c.Link.AckTimeout <= 0 || c.Link.ByteTimeout <= 0 {
		return fmt.Errorf("link timeouts must be positive")
	}
	if c.Transport.CallbackCapacity <= 0 || c.Transport.NotificationCapacity <= 0 {
		return fmt.Errorf("queue capacities must be positive")
	}
	if c.Transport.MaxPayload <= 0 || c.Transport.MaxPayload > link.MaxPayload {
		return fmt.Errorf("max payload must be within 1..%d", link.MaxPayload)
	}
	return c.Node.Validate()
}

type byteValue byte

func (v *byteValue) String() string {
	return strconv.Itoa(int(*v))
}

func (v *byteValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return err
	}
	*v = byteValue(n)
	return nil
}

type hexValue uint32

func (v *hexValue) String() string {
	return fmt.Sprintf("%08x", uint32(*v))
}

func (v *hexValue) Set(s string) error {
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return err
	}
	*v = hexValue(n)
	return nil
}
