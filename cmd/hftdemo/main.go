// Command hftdemo runs the engine worker, the synthetic flow generator, and
// the example mean-reversion strategy together for a fixed 5-second window.
// The strategy consumes the exec and market-data queues on a goroutine of
// its own and feeds the risk counter from its exec handling, while the
// engine worker goroutine touches the book exclusively. Flag-free, like simdemo: grounded on the original's
// hft_main.cpp.
package main

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shagai/hft-sim/events"
	"github.com/Shagai/hft-sim/flow"
	"github.com/Shagai/hft-sim/internal/risk"
	"github.com/Shagai/hft-sim/internal/strategy"
	"github.com/Shagai/hft-sim/ringqueue"
	"github.com/Shagai/hft-sim/worker"
)

const (
	runFor            = 5 * time.Second
	strategyUserID    = 1
	strategyOrderBase = 1_000_000
	windowLen         = 20
	devTicks          = 3.0
	quoteQty          = 5
	maxPosition       = 500
	maxNotional       = 10_000_000
	maxOrderQty       = 50
)

func main() {
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With(zap.String("run_id", uuid.NewString()))

	cmdQ, err := ringqueue.New[events.Command](4096)
	if err != nil {
		log.Fatal("hftdemo: failed to build command queue", zap.Error(err))
	}
	execQ, err := ringqueue.New[events.ExecEvent](4096)
	if err != nil {
		log.Fatal("hftdemo: failed to build exec queue", zap.Error(err))
	}
	mdQ, err := ringqueue.New[events.MarketDataEvent](4096)
	if err != nil {
		log.Fatal("hftdemo: failed to build market data queue", zap.Error(err))
	}

	w := worker.New(cmdQ, execQ, mdQ, flow.Default(), time.Now().UnixNano, log)

	riskMgr := risk.NewManager(maxPosition, maxNotional, maxOrderQty)
	mr := strategy.NewMeanReversion(
		strategy.Context{UserID: strategyUserID, NextOrderID: strategyOrderBase, Tick: flow.Default().Tick},
		riskMgr,
		cmdQ,
		windowLen,
		devTicks,
		quoteQty,
	)

	if err := w.Start(); err != nil {
		log.Fatal("hftdemo: failed to start worker", zap.Error(err))
	}

	stopConsumer := make(chan struct{})
	consumerDone := make(chan struct{})
	go runStrategyConsumer(mr, execQ, mdQ, stopConsumer, consumerDone, log)

	time.Sleep(runFor)

	close(stopConsumer)
	<-consumerDone

	if err := w.Stop(); err != nil {
		log.Fatal("hftdemo: failed to stop worker", zap.Error(err))
	}

	log.Info("hftdemo: run complete", zap.Int64("final_position", riskMgr.Position()), zap.Int64("final_notional", riskMgr.Notional()))
}

func runStrategyConsumer(
	mr *strategy.MeanReversion,
	execQ *ringqueue.RingQueue[events.ExecEvent],
	mdQ *ringqueue.RingQueue[events.MarketDataEvent],
	stop <-chan struct{},
	done chan<- struct{},
	log *zap.Logger,
) {
	defer close(done)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		for {
			ev, ok := execQ.Pop()
			if !ok {
				break
			}
			mr.OnExec(ev)
		}
		for {
			ev, ok := mdQ.Pop()
			if !ok {
				break
			}
			mr.OnMarketData(ev)
		}

		select {
		case <-stop:
			return
		case t := <-ticker.C:
			mr.OnTimer(t.UnixNano())
		default:
		}
	}
}
