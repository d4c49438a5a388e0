// Command daq-stream-server exposes one signal container's packets over a
// websocket packet-streaming link, the example server design §5.I asks
// the native/websocket transport to ship as its own cmd/ front-end rather
// than fold into the library packages themselves.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/opendaq/daqcore/daqlog"
	"github.com/opendaq/daqcore/streaming"
)

var log = daqlog.GetOrAddComponent("daq-stream-server")

func main() {
	listenAddr := pflag.StringP("listen", "l", ":7414", "address to listen on for streaming websocket connections")
	path := pflag.StringP("path", "p", "/stream", "HTTP path the streaming endpoint is mounted at")
	cacheableMax := pflag.Int("cacheable-max", 4096, "payload sizes at or below this many bytes are grouped into cacheable buffers")
	releaseThreshold := pflag.Int("release-threshold", 64, "number of ready-for-release packet IDs buffered before a release frame is flushed")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Parse()

	if *verbose {
		daqlog.SetLevel(daqlog.LevelDebug)
	}

	server := streaming.NewServer(*cacheableMax, *releaseThreshold)

	http.HandleFunc(*path, func(w http.ResponseWriter, r *http.Request) {
		if err := streaming.ServeHTTP(w, r, server); err != nil {
			log.Warning("streaming link failed", "error", err)
		}
	})

	log.Info("daq-stream-server listening", "addr", *listenAddr, "path", *path)
	if err := http.ListenAndServe(*listenAddr, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
