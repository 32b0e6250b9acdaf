package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"vidar/internal/engine"
	"vidar/internal/feed"
	"vidar/internal/net"
)

func main() {
	symbol := flag.String("symbol", "VDR", "Symbol served by this engine instance")
	address := flag.String("address", "0.0.0.0", "Listen address for the session layer")
	port := flag.Int("port", 9001, "Listen port for the session layer")
	feedAddr := flag.String("feed", ":8080", "Listen address for the websocket market-data feed")
	flag.Parse()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer stop()

	// Setup the matching engine, the TCP session layer, and the feed.
	book := engine.NewBook(*symbol, engine.NewCounterSequencer())
	srv := net.New(*address, *port, book)
	md := feed.New(*feedAddr)
	srv.SetPublisher(md)

	go func() {
		if err := md.Run(ctx); err != nil {
			log.Error().Err(err).Msg("feed stopped")
		}
	}()

	go srv.Run(ctx)
	// Block on running the server.
	<-ctx.Done()
}
