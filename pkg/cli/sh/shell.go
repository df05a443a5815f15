// Package sh provides an interactive host shell talking to a bridge.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/serialapi/pkg/host"
	"github.com/robotalks/serialapi/pkg/link"
	"github.com/robotalks/serialapi/pkg/link/port"
	"github.com/robotalks/serialapi/pkg/radio"
	"github.com/robotalks/serialapi/pkg/serialapi"
	"github.com/robotalks/serialapi/pkg/transport"
)

// MemURL connects the shell to an embedded bridge.
const MemURL = "mem://"

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	Timeout     time.Duration
	LinkURL     string

	Shell  *ishell.Shell
	Client *host.Client
	// Network is the radio network of the embedded bridge.
	Network *radio.Network

	ctx    context.Context
	cancel func()
	stream io.Closer
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool
	linkURL    = MemURL

	commands []*ishell.Cmd
)

func init() {
	if val := os.Getenv("SERIALAPI_LINK_URL"); val != "" {
		linkURL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&linkURL, "link", linkURL, "Bridge link URL, "+MemURL+" runs an embedded bridge.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(url string) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     3 * time.Second,
		LinkURL:     url,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("serialapi > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Connect opens the link and starts the host client.
func (s *Shell) Connect() error {
	var stream io.ReadWriteCloser
	s.ctx, s.cancel = context.WithCancel(context.Background())
	if s.LinkURL == MemURL {
		var bridgeEnd io.ReadWriteCloser
		bridgeEnd, stream = link.Pipe()
		s.Network = radio.NewNetwork()
		info := serialapi.DefaultNodeInfo()
		info.HomeID = 0xc0000001
		bridge := serialapi.NewBridge(info, transport.DefaultConfig(), link.New(bridgeEnd), s.Network.Node(info.NodeID))
		go bridge.Run(s.ctx)
	} else {
		var err error
		if stream, err = port.Open(s.LinkURL); err != nil {
			s.cancel()
			return err
		}
	}
	s.stream = stream
	s.Client = host.NewClient(link.New(stream))
	go s.Client.Run(s.ctx)
	return nil
}

// Close stops the client and closes the link.
func (s *Shell) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stream != nil {
		s.stream.Close()
	}
}

// Context returns a context bounded by Timeout for a single command.
func (s *Shell) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.Timeout)
}

// Print prints a result either in JSON or in the given text form.
func (s *Shell) Print(c *ishell.Context, v interface{}, text string) {
	if s.OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// FormatFrame prints an unsolicited frame into friendly string for
// display.
func FormatFrame(f *link.Frame) string {
	return fmt.Sprintf("%s %s", serialapi.FuncName(f.CommandID), strings.ToUpper(hex.EncodeToString(f.Payload)))
}

func (s *Shell) printEvents() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case f := <-s.Client.EventChan():
			s.Shell.Println("<< " + FormatFrame(f))
		}
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Connect(); err != nil {
		log.Fatalf("connect %q failed: %v", s.LinkURL, err)
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		go s.printEvents()
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(linkURL).Run(flag.Args()...)
}
