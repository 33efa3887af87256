// Command bookctl inspects the snapshots feedd persists to Redis.
//
// Usage:
//
//	bookctl list
//	bookctl show <instrument> [-depth N]
//	bookctl delete <instrument>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	goredis "github.com/redis/go-redis/v9"

	"github.com/velostrade/bookcore/pkg/backend"
	redisbackend "github.com/velostrade/bookcore/pkg/backend/redis"
)

var (
	redisAddr   = flag.String("redis", "localhost:6379", "Redis address in the format host:port")
	redisPrefix = flag.String("prefix", "bookcore", "Redis key prefix")
	depth       = flag.Int("depth", 10, "Levels per side to display")
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	// Remove the command from os.Args to make flag parsing work
	os.Args = append(os.Args[:1], os.Args[2:]...)
	flag.Parse()

	client := goredis.NewClient(&goredis.Options{Addr: *redisAddr})
	defer client.Close()
	store := redisbackend.NewSnapshotStore(client, *redisPrefix, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var err error
	switch command {
	case "list":
		err = listSnapshots(ctx, store)
	case "show":
		if flag.NArg() < 1 {
			usage()
			os.Exit(1)
		}
		err = showSnapshot(ctx, store, flag.Arg(0), *depth)
	case "delete":
		if flag.NArg() < 1 {
			usage()
			os.Exit(1)
		}
		err = store.Delete(ctx, flag.Arg(0))
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bookctl <list|show|delete> [instrument] [flags]")
}

func listSnapshots(ctx context.Context, store backend.SnapshotStore) error {
	instrs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(instrs) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	for _, instr := range instrs {
		fmt.Println(instr)
	}
	return nil
}

func showSnapshot(ctx context.Context, store backend.SnapshotStore, instr string, depth int) error {
	snap, err := store.Load(ctx, instr)
	if err != nil {
		if errors.Is(err, backend.ErrSnapshotNotFound) {
			return fmt.Errorf("no snapshot for %s", instr)
		}
		return err
	}

	color.NoColor = false
	cyan := color.New(color.FgCyan).SprintfFunc()
	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	fmt.Println(cyan("%s  rptSeq=%d seqNum=%d taken=%s",
		snap.Instrument, snap.RptSeq, snap.SeqNum, snap.TakenAt.Format(time.RFC3339)))
	fmt.Printf("%20s %14s %6s\n", "price", "qty", "orders")

	// Asks print worst first so the ladder reads top-down.
	asks := snap.Asks
	if depth > 0 && len(asks) > depth {
		asks = asks[:depth]
	}
	for i := len(asks) - 1; i >= 0; i-- {
		l := asks[i]
		fmt.Println(red("%20.8g %14s %6d", l.Px, l.Qty, l.Orders))
	}
	fmt.Println("--------------------")
	bids := snap.Bids
	if depth > 0 && len(bids) > depth {
		bids = bids[:depth]
	}
	for _, l := range bids {
		fmt.Println(green("%20.8g %14s %6d", l.Px, l.Qty, l.Orders))
	}
	return nil
}
