// Command loadtest drives an in-process order book with a synthetic
// random-walk feed and reports apply-latency percentiles. It exercises
// the same engine path feedd uses, minus Kafka.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/velostrade/bookcore/pkg/core"
	"github.com/velostrade/bookcore/pkg/engine"
	"github.com/velostrade/bookcore/pkg/logging"
	"github.com/velostrade/bookcore/pkg/messaging"
)

// Config holds all configuration for the load generator.
type Config struct {
	Instrument string
	PxStep     float64
	MidPx      float64
	NumLevels  int
	MaxOrders  int
	Sparse     bool
	OrdersLog  bool

	NumUpdates int
	Rate       int // updates per second, 0 = unthrottled
	Seed       int64
	LogLevel   string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	v := viper.New()

	// Set default values
	v.SetDefault("LT_INSTRUMENT", "LOADTEST")
	v.SetDefault("LT_PX_STEP", 0.01)
	v.SetDefault("LT_MID_PX", 100.0)
	v.SetDefault("LT_NUM_LEVELS", 2001)
	v.SetDefault("LT_MAX_ORDERS", 1<<16)
	v.SetDefault("LT_SPARSE", false)
	v.SetDefault("LT_ORDERS_LOG", true)
	v.SetDefault("LT_NUM_UPDATES", 1_000_000)
	v.SetDefault("LT_RATE", 0)
	v.SetDefault("LT_SEED", 42)
	v.SetDefault("LT_LOG_LEVEL", "warn")

	// Allow environment variables
	v.AutomaticEnv()

	return &Config{
		Instrument: v.GetString("LT_INSTRUMENT"),
		PxStep:     v.GetFloat64("LT_PX_STEP"),
		MidPx:      v.GetFloat64("LT_MID_PX"),
		NumLevels:  v.GetInt("LT_NUM_LEVELS"),
		MaxOrders:  v.GetInt("LT_MAX_ORDERS"),
		Sparse:     v.GetBool("LT_SPARSE"),
		OrdersLog:  v.GetBool("LT_ORDERS_LOG"),
		NumUpdates: v.GetInt("LT_NUM_UPDATES"),
		Rate:       v.GetInt("LT_RATE"),
		Seed:       v.GetInt64("LT_SEED"),
		LogLevel:   v.GetString("LT_LOG_LEVEL"),
	}
}

func main() {
	cfg := LoadConfig()

	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: true})

	manager := engine.NewManager(logger, nil, nil)
	defer manager.Close()

	opts := core.Options{
		IsSparse:      cfg.Sparse,
		QtyKind:       core.QtyContracts,
		WithOrdersLog: cfg.OrdersLog,
		WithRptSeqs:   true,
		Relaxed:       true,
		NumLevels:     cfg.NumLevels,
		MaxOrders:     cfg.MaxOrders,
		PxStep:        cfg.PxStep,
	}
	if _, err := manager.CreateBook(cfg.Instrument, opts); err != nil {
		logger.Fatal().Err(err).Msg("failed to create book")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen := newFeedGen(cfg)
	hist := hdrhistogram.New(1, 10_000_000, 3) // ns, up to 10ms

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Rate/10+1)
	}

	start := time.Now()
	applied := 0
	for i := 0; i < cfg.NumUpdates; i++ {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		upd := gen.next()
		t0 := time.Now()
		if _, err := manager.ApplySync(upd); err != nil {
			logger.Warn().Err(err).Msg("update rejected")
			continue
		}
		if err := hist.RecordValue(time.Since(t0).Nanoseconds()); err != nil {
			logger.Warn().Err(err).Msg("latency out of histogram range")
		}
		applied++
	}
	elapsed := time.Since(start)

	report(cfg, hist, applied, elapsed)
}

func report(cfg *Config, hist *hdrhistogram.Histogram, applied int, elapsed time.Duration) {
	fmt.Printf("instrument:   %s (sparse=%v ordersLog=%v)\n", cfg.Instrument, cfg.Sparse, cfg.OrdersLog)
	fmt.Printf("applied:      %d updates in %s (%.0f/s)\n",
		applied, elapsed.Round(time.Millisecond), float64(applied)/elapsed.Seconds())
	fmt.Printf("latency p50:  %s\n", time.Duration(hist.ValueAtQuantile(50)))
	fmt.Printf("latency p90:  %s\n", time.Duration(hist.ValueAtQuantile(90)))
	fmt.Printf("latency p99:  %s\n", time.Duration(hist.ValueAtQuantile(99)))
	fmt.Printf("latency p999: %s\n", time.Duration(hist.ValueAtQuantile(99.9)))
	fmt.Printf("latency max:  %s\n", time.Duration(hist.Max()))
}

// feedGen produces a random-walk ladder of order updates around MidPx.
type feedGen struct {
	cfg     *Config
	rnd     *rand.Rand
	rptSeq  int64
	nextOrd uint64
	live    []uint64
}

func newFeedGen(cfg *Config) *feedGen {
	return &feedGen{
		cfg:     cfg,
		rnd:     rand.New(rand.NewSource(cfg.Seed)),
		nextOrd: 1,
	}
}

func (g *feedGen) next() *messaging.FeedUpdate {
	g.rptSeq++
	upd := &messaging.FeedUpdate{
		Instrument: g.cfg.Instrument,
		RptSeq:     g.rptSeq,
	}

	isBid := g.rnd.Intn(2) == 0
	if isBid {
		upd.Side = "bid"
	} else {
		upd.Side = "ask"
	}

	// Mostly adds, some deletes once enough orders are live.
	if len(g.live) > 64 && g.rnd.Intn(4) == 0 {
		i := g.rnd.Intn(len(g.live))
		upd.Action = "delete"
		upd.OrderID = g.live[i]
		g.live[i] = g.live[len(g.live)-1]
		g.live = g.live[:len(g.live)-1]
		upd.Qty = "0"
		return upd
	}

	offset := float64(g.rnd.Intn(g.cfg.NumLevels/4) + 1)
	px := g.cfg.MidPx
	if isBid {
		px -= offset * g.cfg.PxStep
	} else {
		px += offset * g.cfg.PxStep
	}

	upd.Action = "new"
	upd.OrderID = g.nextOrd
	g.nextOrd++
	g.live = append(g.live, upd.OrderID)
	upd.Px = px
	upd.Qty = fmt.Sprintf("%d", g.rnd.Intn(100)+1)
	return upd
}
