// Command daq-mirror-client connects to a remote device's configuration
// protocol endpoint and core-event bus, builds a local configclient.Mirror
// of its root device, and streams core events into it until interrupted.
// The example client design §5.I asks the configuration-protocol client
// mirror to ship alongside the library packages rather than fold into
// them.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/opendaq/daqcore/configclient"
	"github.com/opendaq/daqcore/coreevent"
	"github.com/opendaq/daqcore/coretypes"
	"github.com/opendaq/daqcore/daqlog"
)

var log = daqlog.GetOrAddComponent("daq-mirror-client")

func main() {
	configEndpoint := pflag.StringP("config-endpoint", "c", "tcp://127.0.0.1:7413", "ZeroMQ REQ endpoint for the remote configuration protocol server")
	eventEndpoint := pflag.StringP("event-endpoint", "e", "tcp://127.0.0.1:7416", "ZeroMQ SUB endpoint for the remote core-event bus")
	rootGlobalID := pflag.StringP("root", "r", "/Dev", "globalId of the remote root device to mirror")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	if *verbose {
		daqlog.SetLevel(daqlog.LevelDebug)
	}

	transport, err := configclient.Dial(*configEndpoint, []byte("daq-mirror-client"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect:", err)
		os.Exit(1)
	}
	defer transport.Close()

	mirror := configclient.NewMirror(transport)

	bus, err := coreevent.NewSubscriber("daq-mirror-client", *eventEndpoint)
	if err != nil {
		fmt.Fprintln(os.Stderr, "subscribe:", err)
		os.Exit(1)
	}
	defer bus.Close()

	bus.Handle("", func(globalID string, ev coreevent.Args) {
		if ev.Owner == "" {
			ev.Owner = globalID
		}
		mirror.HandleRemoteEvent(ev)
	})

	ctx := configclient.ComponentDeserializeContext{
		Mirror:         mirror,
		Transport:      transport,
		RemoteGlobalID: *rootGlobalID,
		Bus:            bus,
	}
	deviceIface, err := coretypes.Default.Deserialize("ConfigClientDevice", nil, ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "mirror root device:", err)
		os.Exit(1)
	}
	dev := deviceIface.(*configclient.ConfigClientDevice)
	log.Info("mirroring remote device", "globalId", dev.GlobalID())

	go bus.Listen()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("daq-mirror-client shutting down")
}
