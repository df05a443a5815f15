package main

import (
	"encoding/hex"
	"flag"
	"log"
	"os"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/serialapi/pkg/radio/mqtt"
	"github.com/robotalks/serialapi/pkg/radio/pb"
)

var (
	mqttURL = "mqtt://localhost:1883/serialapi/"
)

func init() {
	if val := os.Getenv("SERIALAPI_RADIO_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	bus, err := mqtt.NewBusFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := bus.Connect(); err != nil {
		log.Fatalln(err)
	}

	token := bus.Subscribe("#", func(topic string, payload []byte) {
		var frame pb.RadioFrame
		if err := proto.Unmarshal(payload, &frame); err != nil {
			log.Printf("%s: bad frame: %v", topic, err)
			return
		}
		var latency time.Duration
		if frame.SentAtNs != 0 {
			latency = time.Since(time.Unix(0, frame.SentAtNs))
		}
		log.Printf("%s: %08x %d -> %d func=%d rssi=%d (%v) %s", topic,
			frame.HomeId, frame.Src, frame.Dst, frame.FuncId, frame.Rssi, latency,
			hex.EncodeToString(frame.Payload))
	})
	if token.Wait(); token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
