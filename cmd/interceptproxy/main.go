// Command interceptproxy runs the interactive HTTP/HTTPS forward proxy:
// an operator-gated man-in-the-middle relay that can auto-forward every
// request or hold each one for a manual forward/drop decision.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"interceptproxy/internal/connhandler"
	"interceptproxy/internal/console"
	"interceptproxy/internal/display"
	"interceptproxy/internal/gate"
	"interceptproxy/internal/proxyserver"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", ":9999", "address to listen on")
	headLimit := flag.Int("head-limit", 64*1024, "maximum accepted request head size, in bytes")
	noConsole := flag.Bool("no-console", false, "disable the operator console and run permanently in auto mode")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	sink := display.NewLogrusSink(log)
	releaser := connhandler.NewReleaser(log)
	g := gate.New(releaser)

	handler := connhandler.New(g, releaser, sink, log)
	handler.HeadLimit = *headLimit

	var cons *console.Console
	if !*noConsole {
		cons = console.New(g, sink, log)
	}

	srv := proxyserver.New(*addr, handler, cons, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			fmt.Fprintf(os.Stderr, "interceptproxy: failed to listen on %s: %v\n", *addr, opErr.Err)
		} else {
			fmt.Fprintf(os.Stderr, "interceptproxy: %v\n", err)
		}
		return 1
	}
	return 0
}
