// Package port opens byte streams for the link from URLs.
package port

import (
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/golang/glog"
)

// UnknownSchemeError is returned when the URL scheme is not supported.
type UnknownSchemeError struct {
	Scheme string
}

// Error implements error.
func (e *UnknownSchemeError) Error() string {
	return fmt.Sprintf("unknown port scheme %q", e.Scheme)
}

// Opener opens a byte stream from a parsed URL.
type Opener func(u *url.URL) (io.ReadWriteCloser, error)

var openers = map[string]Opener{
	"serial":     OpenSerial,
	"tcp":        openTCP,
	"tcp-listen": openTCPListen,
	"ws":         OpenWebSocket,
	"wss":        OpenWebSocket,
}

// Register adds an Opener for scheme.
func Register(scheme string, opener Opener) {
	openers[scheme] = opener
}

// Open opens a byte stream from a URL like:
//
//	serial:///dev/ttyUSB0?baud=115200
//	tcp://host:4901
//	tcp-listen://:4901
//	ws://host:8080/serialapi
//	mqtt-link://broker:1883/prefix/?side=host
func Open(rawURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	opener, ok := openers[u.Scheme]
	if !ok {
		return nil, &UnknownSchemeError{Scheme: u.Scheme}
	}
	glog.Infof("open port %s", rawURL)
	return opener(u)
}

func openTCP(u *url.URL) (io.ReadWriteCloser, error) {
	return net.Dial("tcp", u.Host)
}

// openTCPListen accepts a single host then stops listening.
func openTCPListen(u *url.URL) (io.ReadWriteCloser, error) {
	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, err
	}
	defer ln.Close()
	glog.Infof("waiting for host on %s", ln.Addr())
	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	glog.Infof("host connected from %s", conn.RemoteAddr())
	return conn, nil
}
