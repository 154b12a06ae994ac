// Command simdemo runs the engine worker and the synthetic flow generator
// for a fixed 3-second window, starting from the book the worker seeds,
// and logs every trade print through the development zap logger (stderr). It takes no flags: grounded on the original's
// sim_main.cpp, which ran the same fixed scenario for demonstration rather
// than load testing.
package main

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shagai/hft-sim/events"
	"github.com/Shagai/hft-sim/flow"
	"github.com/Shagai/hft-sim/ringqueue"
	"github.com/Shagai/hft-sim/worker"
)

const runFor = 3 * time.Second

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With(zap.String("run_id", uuid.NewString()))

	cmdQ, err := ringqueue.New[events.Command](1024)
	if err != nil {
		log.Fatal("simdemo: failed to build command queue", zap.Error(err))
	}
	execQ, err := ringqueue.New[events.ExecEvent](4096)
	if err != nil {
		log.Fatal("simdemo: failed to build exec queue", zap.Error(err))
	}
	mdQ, err := ringqueue.New[events.MarketDataEvent](4096)
	if err != nil {
		log.Fatal("simdemo: failed to build market data queue", zap.Error(err))
	}

	w := worker.New(cmdQ, execQ, mdQ, flow.Default(), time.Now().UnixNano, log)
	if err := w.Start(); err != nil {
		log.Fatal("simdemo: failed to start worker", zap.Error(err))
	}

	stop := time.After(runFor)
	trades, tops := 0, 0
loop:
	for {
		select {
		case <-stop:
			break loop
		default:
		}

		for {
			ev, ok := mdQ.Pop()
			if !ok {
				break
			}
			switch ev.Kind {
			case events.MDTradePrint:
				trades++
				log.Info("trade", zap.Int64("price", ev.Print.Price), zap.Int32("qty", ev.Print.Qty), zap.Stringer("aggressor", ev.Print.Aggressor))
			case events.MDTopOfBook:
				tops++
			}
		}
		for {
			if _, ok := execQ.Pop(); !ok {
				break
			}
		}

		time.Sleep(time.Millisecond)
	}

	if err := w.Stop(); err != nil {
		log.Fatal("simdemo: failed to stop worker", zap.Error(err))
	}

	log.Info("simdemo: run complete", zap.Int("trade_prints", trades), zap.Int("top_of_book_updates", tops))
}
