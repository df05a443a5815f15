package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/serialapi/pkg/config"
	"github.com/robotalks/serialapi/pkg/env"
	fx "github.com/robotalks/serialapi/pkg/framework"
	"github.com/robotalks/serialapi/pkg/link"
	"github.com/robotalks/serialapi/pkg/link/port"
	"github.com/robotalks/serialapi/pkg/radio"
	"github.com/robotalks/serialapi/pkg/radio/mqtt"
	"github.com/robotalks/serialapi/pkg/serialapi"
	"github.com/robotalks/serialapi/pkg/transport"
)

var dumpConfig bool

func init() {
	config.SetupFlags(flag.CommandLine)
	flag.BoolVar(&dumpConfig, "dump-config", dumpConfig, "Print effective configuration and exit.")
}

type stats struct {
	Link      link.Stats         `yaml:"link"`
	Transport transport.Snapshot `yaml:"transport"`
	State     string             `yaml:"state"`
	Readiness string             `yaml:"readiness"`
}

func logStats(b *serialapi.Bridge) {
	out, err := yaml.Marshal(&stats{
		Link:      b.Link.Stats(),
		Transport: b.Engine.Stats().Snapshot(),
		State:     b.Engine.State().String(),
		Readiness: b.Engine.Readiness().State().String(),
	})
	if err != nil {
		glog.Errorf("marshal stats: %v", err)
		return
	}
	glog.Infof("statistics:\n%s", out)
}

// signalHooks maps platform power events onto the bridge. SIGCONT is
// delivered after the process is woken from a stop.
func signalHooks(b *serialapi.Bridge) map[os.Signal]func() {
	return map[os.Signal]func(){
		syscall.SIGUSR1: b.OnSuspend,
		syscall.SIGUSR2: b.OnResume,
		syscall.SIGCONT: b.Wakeup,
		syscall.SIGHUP:  func() { logStats(b) },
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openRadio(rawURL string, homeID uint32, node byte) (radio.Radio, io.Closer, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid radio URL: %v", err)
	}
	switch u.Scheme {
	case "loopback":
		return radio.NewNetwork().Node(node), nopCloser{}, nil
	case "mqtt", "mqtts":
		r, err := mqtt.OpenRadio(rawURL, homeID, node)
		if err != nil {
			return nil, nil, err
		}
		return r, r, nil
	default:
		return nil, nil, fmt.Errorf("unknown radio URL scheme: %q", u.Scheme)
	}
}

func main() {
	flag.Parse()
	conf := config.MustLoad()
	if conf.Node.HomeID == 0 {
		homeID, err := env.HomeID()
		if err != nil {
			glog.Fatalln(err)
		}
		conf.Node.HomeID = homeID
	}
	if dumpConfig {
		if err := conf.Write(os.Stdout); err != nil {
			glog.Fatalln(err)
		}
		return
	}

	stream, err := port.Open(conf.Link.URL)
	if err != nil {
		glog.Fatalf("open %s: %v", conf.Link.URL, err)
	}
	defer stream.Close()
	lnk := link.New(stream)
	lnk.SetTimeouts(time.Duration(conf.Link.AckTimeout), time.Duration(conf.Link.ByteTimeout))

	r, closer, err := openRadio(conf.Radio.URL, conf.Node.HomeID, conf.Node.NodeID)
	if err != nil {
		glog.Fatalf("open radio %s: %v", conf.Radio.URL, err)
	}
	defer closer.Close()

	bridge := serialapi.NewBridge(conf.Node, conf.Transport, lnk, r)
	bridge.Interval = time.Duration(conf.Interval)
	glog.Infof("bridge %08x/%d on %s", conf.Node.HomeID, conf.Node.NodeID, conf.Link.URL)

	runner := fx.NewRunner()
	for sig, fn := range signalHooks(bridge) {
		runner.OnSignal(sig, fn)
	}
	runner.HandleSignals()
	runner.Go(fx.NamedRun("bridge", fx.RunnableFunc(func(ctx context.Context) error {
		// closing the stream unblocks the pending read
		return fx.RunWithContextCloser(ctx, stream, func() error { return bridge.Run(ctx) })
	})))
	err = runner.Wait()
	logStats(bridge)
	if err != nil {
		glog.Errorln(err)
	}
	glog.Flush()
}
