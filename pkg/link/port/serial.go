package port

import (
	"encoding/binary"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/Gurux/gxcommon-go"
	"github.com/Gurux/gxserial-go"
	"github.com/golang/glog"
	"golang.org/x/text/language"
)

// SerialConfig holds serial line settings.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits string
	Language string
}

// DefaultSerialConfig returns 115200 8N1.
func DefaultSerialConfig(device string) SerialConfig {
	return SerialConfig{
		Device:   device,
		BaudRate: 115200,
		DataBits: 8,
		Parity:   "None",
		StopBits: "One",
	}
}

// SerialConfigFromURL parses serial settings from query parameters
// baud, databits, parity, stopbits and lang.
func SerialConfigFromURL(u *url.URL) (conf SerialConfig, err error) {
	device := u.Path
	if device == "" {
		device = u.Opaque
	}
	if u.Host != "" {
		device = u.Host + device
	}
	conf = DefaultSerialConfig(device)
	q := u.Query()
	if v := q.Get("baud"); v != "" {
		if conf.BaudRate, err = strconv.Atoi(v); err != nil {
			return conf, fmt.Errorf("invalid baud %q: %v", v, err)
		}
	}
	if v := q.Get("databits"); v != "" {
		if conf.DataBits, err = strconv.Atoi(v); err != nil {
			return conf, fmt.Errorf("invalid databits %q: %v", v, err)
		}
	}
	if v := q.Get("parity"); v != "" {
		conf.Parity = v
	}
	if v := q.Get("stopbits"); v != "" {
		conf.StopBits = v
	}
	conf.Language = q.Get("lang")
	return conf, nil
}

// Serial adapts a gxserial media into an io.ReadWriteCloser. Data
// received asynchronously is delivered through a pipe.
type Serial struct {
	media *gxserial.GXSerial
	pr    *io.PipeReader
	pw    *io.PipeWriter
}

// NewSerial creates the serial media without opening it.
func NewSerial(conf SerialConfig) (*Serial, error) {
	parity, err := gxcommon.ParityParse(conf.Parity)
	if err != nil {
		return nil, err
	}
	stopBits, err := gxcommon.StopBitsParse(conf.StopBits)
	if err != nil {
		return nil, err
	}
	media := gxserial.NewGXSerial(conf.Device, gxcommon.BaudRate(conf.BaudRate), conf.DataBits, parity, stopBits)
	if conf.Language != "" {
		tag, err := language.Parse(conf.Language)
		if err != nil {
			return nil, fmt.Errorf("invalid lang %q: %v", conf.Language, err)
		}
		media.Localize(tag)
	}
	s := &Serial{media: media}
	s.pr, s.pw = io.Pipe()
	media.SetOnReceived(func(m gxcommon.IGXMedia, e gxcommon.ReceiveEventArgs) {
		data, err := gxcommon.ToBytes(e.Data(), binary.BigEndian)
		if err != nil {
			glog.Errorf("serial %s: %v", conf.Device, err)
			return
		}
		s.pw.Write(data)
	})
	media.SetOnError(func(m gxcommon.IGXMedia, err error) {
		glog.Errorf("serial %s: %v", conf.Device, err)
		s.pw.CloseWithError(err)
	})
	return s, nil
}

// OpenSerial implements Opener for serial:// URLs.
func OpenSerial(u *url.URL) (io.ReadWriteCloser, error) {
	conf, err := SerialConfigFromURL(u)
	if err != nil {
		return nil, err
	}
	s, err := NewSerial(conf)
	if err != nil {
		return nil, err
	}
	if err = s.media.Validate(); err != nil {
		return nil, err
	}
	if err = s.media.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

// Read implements io.Reader.
func (s *Serial) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Write implements io.Writer.
func (s *Serial) Write(p []byte) (int, error) {
	if err := s.media.Send(p, ""); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close implements io.Closer.
func (s *Serial) Close() error {
	err := s.media.Close()
	s.pw.Close()
	return err
}

// String returns the device and settings.
func (s *Serial) String() string {
	return s.media.String()
}
