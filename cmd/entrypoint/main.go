// Package main runs the market and papers services in one process.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	marketcmd "github.com/nightdesk/nightdesk/internal/cmd/market"
	paperscmd "github.com/nightdesk/nightdesk/internal/cmd/papers"
)

func main() {
	marketFlags := flag.NewFlagSet("market", flag.ExitOnError)
	marketCfg, err := marketcmd.ParseConfig(marketFlags, nil)
	if err != nil {
		log.Fatalf("parse market config: %v", err)
	}
	papersFlags := flag.NewFlagSet("papers", flag.ExitOnError)
	papersCfg, err := paperscmd.ParseConfig(papersFlags, nil)
	if err != nil {
		log.Fatalf("parse papers config: %v", err)
	}

	log.SetPrefix("[NIGHTDESK] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return marketcmd.Run(groupCtx, marketCfg)
	})
	group.Go(func() error {
		return paperscmd.Run(groupCtx, papersCfg)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
