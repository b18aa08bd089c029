// Package dispatcher routes tasks to channel worker pools over ZeroMQ and
// correlates the asynchronous replies back to the waiting callers.
//
// Topology: one DEALER socket bound per channel port, workers connect REP
// sockets to it. A task travels as the multipart message
// [task_id, "", payload]; the reply mirrors the same envelope, so the first
// frame is all the correlation needs.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/netgate-io/netgate/internal/broker/registry"
	"github.com/netgate-io/netgate/internal/config"
	zmq "github.com/pebbe/zmq4"
)

var ErrChannelNotServed = errors.New("no socket serves this channel")
var ErrTimeout = errors.New("no worker reply before the ceiling")
var ErrQueueFull = errors.New("channel send queue full")

// Submitter is the broker-facing contract: hand a task to a channel's worker
// pool and block until the reply or the ceiling. The HTTP layer depends on
// this interface, not on ZeroMQ.
type Submitter interface {
	Submit(channel, taskID string, payload []byte) ([]byte, error)
}

type outbound struct {
	taskID  string
	payload []byte
}

// Dispatcher owns the pending-task bookkeeping and one socket loop per
// channel port. ZeroMQ sockets are not safe for concurrent use, so all
// socket I/O of one port happens on its loop goroutine; Submit communicates
// with the loop through a Go channel.
type Dispatcher struct {
	registry       *registry.Registry
	rendezvousPort int
	ceiling        time.Duration

	mutex   sync.Mutex
	pending map[string]chan []byte
	queues  map[int]chan outbound
}

func New(reg *registry.Registry, rendezvousPort int, ceiling time.Duration) *Dispatcher {
	return &Dispatcher{
		registry:       reg,
		rendezvousPort: rendezvousPort,
		ceiling:        ceiling,
		pending:        make(map[string]chan []byte),
		queues:         make(map[int]chan outbound),
	}
}

// Start binds one socket per channel port plus the rendezvous endpoint and
// spawns their loops. Loops stop when ctx is done.
func (d *Dispatcher) Start(ctx context.Context) error {
	for _, port := range d.registry.Ports() {
		queue := make(chan outbound, 1024)
		d.queues[port] = queue

		sock, err := zmq.NewSocket(zmq.DEALER)
		if err != nil {
			return fmt.Errorf("unable to create channel socket: %w", err)
		}
		if err := sock.Bind(fmt.Sprintf("tcp://*:%d", port)); err != nil {
			return fmt.Errorf("unable to bind port %d: %w", port, err)
		}

		go d.channelLoop(ctx, sock, port, queue)
	}

	return d.startRendezvous(ctx)
}

// Submit registers the pending entry, enqueues the task to the channel's
// socket loop, and blocks for the reply. On timeout the entry is released so
// a late reply is discarded instead of leaking.
func (d *Dispatcher) Submit(channel, taskID string, payload []byte) ([]byte, error) {
	port, ok := d.registry.Port(channel)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotServed, channel)
	}
	queue, ok := d.queues[port]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotServed, channel)
	}

	reply := make(chan []byte, 1)
	d.mutex.Lock()
	d.pending[taskID] = reply
	d.mutex.Unlock()

	release := func() {
		d.mutex.Lock()
		delete(d.pending, taskID)
		d.mutex.Unlock()
	}

	select {
	case queue <- outbound{taskID: taskID, payload: payload}:
	default:
		release()
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, channel)
	}

	select {
	case data := <-reply:
		if len(data) == 0 {
			return nil, fmt.Errorf("failed to forward task %s to channel %s", taskID, channel)
		}
		return data, nil
	case <-time.After(d.ceiling):
		release()
		slog.Error("task timed out waiting for worker reply", "task_id", taskID, "channel", channel)
		return nil, ErrTimeout
	}
}

// PendingCount reports how many tasks are waiting for a reply.
func (d *Dispatcher) PendingCount() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.pending)
}

// channelLoop owns one DEALER socket: it interleaves draining the outbound
// queue with polling for worker replies.
func (d *Dispatcher) channelLoop(ctx context.Context, sock *zmq.Socket, port int, queue chan outbound) {
	defer func() { _ = sock.Close() }()

	poller := zmq.NewPoller()
	poller.Add(sock, zmq.POLLIN)

	slog.Info("channel socket ready", "port", port)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		polled, err := poller.Poll(config.DispatcherTick)
		if err != nil {
			slog.Error("poll failed", "port", port, "error", err)
			return
		}

		if len(polled) > 0 {
			for {
				frames, err := sock.RecvMessageBytes(zmq.DONTWAIT)
				if err != nil {
					break
				}
				d.deliver(frames)
			}
		}

	drain:
		for {
			select {
			case t := <-queue:
				if _, err := sock.SendMessage(t.taskID, "", t.payload); err != nil {
					slog.Error("failed to send task", "task_id", t.taskID, "port", port, "error", err)
					d.deliver([][]byte{[]byte(t.taskID), nil, nil})
				}
			default:
				break drain
			}
		}
	}
}

// deliver hands a worker reply to the waiting caller. A reply with no
// pending entry belongs to a task that already timed out; discarding it is
// the contract, not an error.
func (d *Dispatcher) deliver(frames [][]byte) {
	if len(frames) < 3 {
		slog.Warn("dropping malformed worker reply", "frames", len(frames))
		return
	}
	taskID := string(frames[0])
	payload := frames[len(frames)-1]

	d.mutex.Lock()
	reply, ok := d.pending[taskID]
	if ok {
		delete(d.pending, taskID)
	}
	d.mutex.Unlock()

	if !ok {
		slog.Info("discarding late reply", "task_id", taskID)
		return
	}
	reply <- payload
	slog.Info("task finished", "task_id", taskID)
}
