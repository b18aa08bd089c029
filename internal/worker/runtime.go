// Package worker runs a pool of task executors for one channel. Each worker
// process asks the broker's rendezvous port where its channel lives, then
// connects N reply sockets to that port and serves tasks until stopped.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/netgate-io/netgate/internal/config"
	zmq "github.com/pebbe/zmq4"
)

type Runtime struct {
	cfg     *config.WorkerConfig
	handler Handler
}

func New(cfg *config.WorkerConfig) *Runtime {
	return &Runtime{cfg: cfg, handler: handlerFor(cfg.Channel)}
}

// Run blocks until ctx is canceled or the rendezvous fails.
func (r *Runtime) Run(ctx context.Context) error {
	port, err := r.rendezvous()
	if err != nil {
		return err
	}
	slog.Info("channel resolved",
		"channel", r.cfg.Channel,
		"port", port,
		"worker_id", r.cfg.WorkerID,
		"threads", r.cfg.Threads,
	)

	go r.heartbeat(ctx)

	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Threads; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.serve(ctx, port, n)
		}(i)
	}
	wg.Wait()
	return nil
}

// rendezvous asks the broker which port serves this channel. The request
// doubles as the registry announce, so it carries the worker identity.
func (r *Runtime) rendezvous() (int, error) {
	sock, err := zmq.NewSocket(zmq.REQ)
	if err != nil {
		return 0, fmt.Errorf("creating rendezvous socket: %w", err)
	}
	defer func() { _ = sock.Close() }()

	endpoint := fmt.Sprintf("tcp://%s:%d", r.cfg.BrokerAddress, r.cfg.BrokerPort)
	if err := sock.Connect(endpoint); err != nil {
		return 0, fmt.Errorf("connecting to rendezvous %s: %w", endpoint, err)
	}

	if err := sock.SetRcvtimeo(10 * time.Second); err != nil {
		return 0, err
	}
	if _, err := sock.Send(r.announce(), 0); err != nil {
		return 0, fmt.Errorf("announcing channel: %w", err)
	}

	reply, err := sock.Recv(0)
	if err != nil {
		return 0, fmt.Errorf("rendezvous reply: %w", err)
	}

	var port int
	if _, err := fmt.Sscanf(reply, "%d", &port); err != nil || port <= 0 {
		return 0, fmt.Errorf("channel %s is not served by the broker", r.cfg.Channel)
	}
	return port, nil
}

func (r *Runtime) announce() string {
	return fmt.Sprintf("%s::%s", r.cfg.Channel, r.cfg.WorkerID)
}

// heartbeat re-announces periodically so the broker keeps this worker in the
// active set. Failures are logged and retried on the next tick.
func (r *Runtime) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.rendezvous(); err != nil {
				slog.Warn("heartbeat failed", "channel", r.cfg.Channel, "error", err)
			}
		}
	}
}

// serve owns one REP socket for its whole lifetime. The broker's envelope
// carries the task correlation, so the loop only ever sees the payload frame
// and answers with a single reply frame.
func (r *Runtime) serve(ctx context.Context, port, n int) {
	sock, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		slog.Error("creating task socket", "error", err)
		return
	}
	defer func() { _ = sock.Close() }()

	endpoint := fmt.Sprintf("tcp://%s:%d", r.cfg.BrokerAddress, port)
	if err := sock.Connect(endpoint); err != nil {
		slog.Error("connecting task socket", "endpoint", endpoint, "error", err)
		return
	}

	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	for {
		if ctx.Err() != nil {
			return
		}

		polled, err := poller.Poll(config.DispatcherTick)
		if err != nil {
			slog.Error("polling task socket", "error", err)
			return
		}
		if len(polled) == 0 {
			continue
		}

		frames, err := sock.RecvMessageBytes(0)
		if err != nil {
			slog.Error("receiving task", "error", err)
			continue
		}
		payload := frames[len(frames)-1]

		reply := r.handler(payload)
		if _, err := sock.SendBytes(reply, 0); err != nil {
			slog.Error("sending reply", "thread", n, "error", err)
		}
	}
}
