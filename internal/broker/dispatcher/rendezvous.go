package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/netgate-io/netgate/internal/config"
	zmq "github.com/pebbe/zmq4"
)

// startRendezvous binds the REP endpoint where workers announce their
// channel and learn the port to connect to. An unknown channel gets "0",
// which is fatal for the worker, not for us. Workers re-announce
// periodically; each announce refreshes their registry membership.
func (d *Dispatcher) startRendezvous(ctx context.Context) error {
	sock, err := zmq.NewSocket(zmq.REP)
	if err != nil {
		return fmt.Errorf("unable to create rendezvous socket: %w", err)
	}
	if err := sock.Bind(fmt.Sprintf("tcp://*:%d", d.rendezvousPort)); err != nil {
		return fmt.Errorf("unable to bind rendezvous port %d: %w", d.rendezvousPort, err)
	}

	go func() {
		defer func() { _ = sock.Close() }()

		poller := zmq.NewPoller()
		poller.Add(sock, zmq.POLLIN)

		slog.Info("rendezvous ready", "port", d.rendezvousPort)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			polled, err := poller.Poll(config.DispatcherTick)
			if err != nil {
				slog.Error("rendezvous poll failed", "error", err)
				return
			}
			if len(polled) == 0 {
				d.registry.Expire()
				continue
			}

			msg, err := sock.Recv(0)
			if err != nil {
				slog.Error("rendezvous receive failed", "error", err)
				continue
			}

			channel, workerID := parseAnnounce(msg)
			port, err := d.registry.Announce(channel, workerID)
			if err != nil {
				slog.Warn("rejecting worker", "channel", channel, "worker", workerID, "error", err)
			} else {
				slog.Info("worker connected", "channel", channel, "worker", workerID, "port", port)
			}
			if _, err := sock.Send(fmt.Sprint(port), 0); err != nil {
				slog.Error("rendezvous reply failed", "error", err)
			}
		}
	}()
	return nil
}

// parseAnnounce splits a "channel::worker-id" announce. Plain channel names
// are accepted for workers that do not identify themselves.
func parseAnnounce(msg string) (string, string) {
	parts := strings.SplitN(msg, "::", 2)
	channel := strings.TrimSpace(parts[0])
	if len(parts) == 2 && parts[1] != "" {
		return channel, parts[1]
	}
	return channel, "anonymous-" + channel
}
