package main

import (
	"fmt"
	"os"

	"github.com/velostrade/bookcore/pkg/core"
	"github.com/velostrade/bookcore/pkg/logging"
)

func main() {
	// Build a dense book: 101 price levels, one cent step
	logger := logging.New(logging.Config{Level: "info", Pretty: true})
	book, err := core.New("DEMO", core.Options{
		QtyKind:     core.QtyContracts,
		WithRptSeqs: true,
		NumLevels:   101,
		PxStep:      0.01,
		Logger:      &logger,
	})
	if err != nil {
		panic(err)
	}

	// Seed both sides
	qty := func(s string) core.Qty {
		q, err := core.QtyFromString(core.QtyContracts, s)
		if err != nil {
			panic(err)
		}
		return q
	}

	eff, err := book.Update(core.Bid, core.ActionNew, 99.99, qty("10"), 1, 0, 0)
	if err != nil {
		panic(err)
	}
	fmt.Printf("bid 99.99 x 10 -> effect %s\n", eff)

	eff, err = book.Update(core.Ask, core.ActionNew, 100.01, qty("5"), 2, 0, 0)
	if err != nil {
		panic(err)
	}
	fmt.Printf("ask 100.01 x 5 -> effect %s\n", eff)

	// Deepen the bid side
	if _, err := book.Update(core.Bid, core.ActionNew, 99.98, qty("20"), 3, 0, 0); err != nil {
		panic(err)
	}
	if _, err := book.Update(core.Bid, core.ActionNew, 99.97, qty("30"), 4, 0, 0); err != nil {
		panic(err)
	}

	fmt.Printf("\nbest bid: %s x %s\n", book.BestBidPx(), book.BestBidQty())
	fmt.Printf("best ask: %s x %s\n", book.BestAskPx(), book.BestAskQty())
	fmt.Printf("mid:      %s\n\n", book.GetMidPx(0))

	book.Print(os.Stdout, 5)

	// VWAP to buy 25 contracts, then 25 more
	p, err := core.NewParamsVWAP(25, 25)
	if err != nil {
		panic(err)
	}
	if err := book.GetVWAP(core.Bid, p); err != nil {
		panic(err)
	}
	fmt.Printf("\nsell 25: vwap=%.4f worst=%s\n", p.VWAPs[0], p.WorstPxs[0])
	fmt.Printf("next 25: vwap=%.4f worst=%s\n", p.VWAPs[1], p.WorstPxs[1])
}
