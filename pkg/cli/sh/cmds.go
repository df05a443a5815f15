package sh

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/serialapi/pkg/serialapi"
)

func init() {
	AddCmds(
		&VersionCmd,
		&CapsCmd,
		&InitDataCmd,
		&IDCmd,
		&RandomCmd,
		&SendCmd,
		&ReadyCmd,
		&TimeoutsCmd,
		&TxReportCmd,
		&ResetCmd,
		&RawCmd,
		&PeerCmd,
	)
}

// ParseHex parses hex bytes from args. Args are concatenated, so both
// "0102" and "01 02" are accepted.
func ParseHex(args []string) ([]byte, error) {
	return hex.DecodeString(strings.Join(args, ""))
}

// ParseByte parses a decimal or 0x prefixed byte.
func ParseByte(s string) (byte, error) {
	n, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(n), nil
}

func parseSwitch(args []string) (bool, error) {
	if len(args) == 0 {
		return false, fmt.Errorf("on or off expected")
	}
	switch strings.ToLower(args[0]) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("on or off expected, got %q", args[0])
}

var (
	// VersionCmd queries ZW_GET_VERSION.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"v"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			ver, err := s.Client.GetVersion(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, ver, fmt.Sprintf("%s library %d", ver.Library, ver.LibraryType))
		},
	}

	// CapsCmd queries SERIAL_API_GET_CAPABILITIES.
	CapsCmd = ishell.Cmd{
		Name:    "caps",
		Aliases: []string{"capabilities"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			caps, err := s.Client.GetCapabilities(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			names := make([]string, len(caps.Supported))
			for n, id := range caps.Supported {
				names[n] = serialapi.FuncName(id)
			}
			s.Print(c, caps, fmt.Sprintf("app %d.%d manufacturer %04x product %04x/%04x\n%s",
				caps.AppVersion, caps.AppRevision, caps.ManufacturerID,
				caps.ProductType, caps.ProductID, strings.Join(names, "\n")))
		},
	}

	// InitDataCmd queries SERIAL_API_GET_INIT_DATA.
	InitDataCmd = ishell.Cmd{
		Name:    "init",
		Aliases: []string{"nodes"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			data, err := s.Client.GetInitData(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, data, fmt.Sprintf("api %d chip %d.%d nodes %v",
				data.APIVersion, data.ChipType, data.ChipVersion, data.Nodes))
		},
	}

	// IDCmd queries MEMORY_GET_ID.
	IDCmd = ishell.Cmd{
		Name: "id",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			homeID, nodeID, err := s.Client.MemoryGetID(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, map[string]interface{}{"home-id": homeID, "node-id": nodeID},
				fmt.Sprintf("home %08x node %d", homeID, nodeID))
		},
	}

	// RandomCmd queries ZW_GET_RANDOM.
	RandomCmd = ishell.Cmd{
		Name: "random",
		Help: "[COUNT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var count byte
			if len(c.Args) > 0 {
				n, err := ParseByte(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				count = n
			}
			ctx, cancel := s.Context()
			defer cancel()
			data, err := s.Client.GetRandom(ctx, count)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, data, strings.ToUpper(hex.EncodeToString(data)))
		},
	}

	// SendCmd sends data through ZW_SEND_DATA.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "NODE FUNCID HEX...",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) < 3 {
				c.Err(fmt.Errorf("NODE FUNCID HEX... expected"))
				return
			}
			node, err := ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			funcID, err := ParseByte(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			data, err := ParseHex(c.Args[2:])
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := s.Context()
			defer cancel()
			if err := s.Client.SendData(ctx, node, data, 0x25, funcID); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// ReadyCmd sends SERIAL_API_READY.
	ReadyCmd = ishell.Cmd{
		Name: "ready",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			attach, err := parseSwitch(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := s.Context()
			defer cancel()
			if err := s.Client.Ready(ctx, attach); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// TimeoutsCmd sends SERIAL_API_SET_TIMEOUTS.
	TimeoutsCmd = ishell.Cmd{
		Name: "timeouts",
		Help: "ACK BYTE (durations)",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("ACK BYTE expected"))
				return
			}
			ack, err := time.ParseDuration(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			byteTimeout, err := time.ParseDuration(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := s.Context()
			defer cancel()
			oldAck, oldByte, err := s.Client.SetTimeouts(ctx, ack, byteTimeout)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("previous ack %v byte %v\n", oldAck, oldByte)
		},
	}

	// TxReportCmd toggles the extended transmit status report.
	TxReportCmd = ishell.Cmd{
		Name: "txreport",
		Help: "on|off",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			enable, err := parseSwitch(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := s.Context()
			defer cancel()
			if err := s.Client.SetTxStatusReport(ctx, enable); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// ResetCmd sends SERIAL_API_SOFT_RESET.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.Context()
			defer cancel()
			if err := s.Client.SoftReset(ctx); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		},
	}

	// RawCmd sends an arbitrary request and prints the response.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "CMD [HEX...]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("CMD expected"))
				return
			}
			cmd, err := ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			payload, err := ParseHex(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			ctx, cancel := s.Context()
			defer cancel()
			r := s.Client.Do(cmd, payload...).Wait(ctx)
			if r.Err != nil {
				c.Err(r.Err)
				return
			}
			s.Print(c, r, fmt.Sprintf("%s %s", serialapi.FuncName(r.CommandID),
				strings.ToUpper(hex.EncodeToString(r.Payload))))
		},
	}

	// PeerCmd injects a frame from a node of the embedded network.
	PeerCmd = ishell.Cmd{
		Name: "peer",
		Help: "NODE HEX... (" + MemURL + " only)",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if s.Network == nil {
				c.Err(fmt.Errorf("peer requires %s", MemURL))
				return
			}
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("NODE HEX... expected"))
				return
			}
			node, err := ParseByte(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			data, err := ParseHex(c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			if err := s.Network.Node(node).SendData(1, data, 0); err != nil {
				c.Err(err)
			}
		},
	}
)
