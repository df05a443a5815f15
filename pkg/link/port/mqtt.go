package port

import (
	"io"
	"net/url"

	"github.com/robotalks/serialapi/pkg/radio/mqtt"
)

func init() {
	Register("mqtt-link", OpenMQTT)
}

// OpenMQTT tunnels the link through an MQTT broker:
//
//	mqtt-link://broker:1883/prefix/?side=host
//
// side is bridge (default) or host.
func OpenMQTT(u *url.URL) (io.ReadWriteCloser, error) {
	q := u.Query()
	bridgeSide := q.Get("side") != "host"
	q.Del("side")
	broker := *u
	broker.Scheme = "mqtt"
	broker.RawQuery = q.Encode()
	return mqtt.OpenStream(broker.String(), bridgeSide)
}
