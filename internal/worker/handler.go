package worker

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/netgate-io/netgate/internal/family"
	"github.com/netgate-io/netgate/internal/serializer"
	"github.com/netgate-io/netgate/internal/session"
	"github.com/netgate-io/netgate/internal/task"
)

// Handler turns one task payload into one reply payload. It must never
// return nil: every task gets an answer, including malformed ones.
type Handler func(payload []byte) []byte

// handlerFor picks the handler serving a channel. CLI vendor channels share
// one handler parameterized by the family table.
func handlerFor(channel string) Handler {
	switch channel {
	case "snmp":
		return handleSNMP
	case "test":
		return handleTest
	default:
		return handleCLI
	}
}

// handleCLI opens an interactive session on the device and runs the command
// list in order. A session lost mid-run keeps the output gathered so far.
func handleCLI(payload []byte) []byte {
	start := time.Now()
	res := task.Result{StartAt: start.Format(task.TimeLayout)}

	var req task.CLIRequest
	if err := serializer.JSON.Unmarshal(payload, &req); err != nil {
		res.Status = task.StatusError
		res.Message = fmt.Sprintf("invalid task payload: %s", err)
		return finish(&res)
	}
	res.TaskID = req.TaskID
	res.IP = req.IP

	cli := session.NewCLI(&req, family.ByChannel(req.Channel))
	if err := cli.Login(); err != nil {
		res.Status = task.StatusFail
		res.Message = err.Error()
		return finish(&res)
	}
	defer cli.Close()

	res.Hostname = cli.Hostname()
	if req.Hostname != "" && !strings.EqualFold(req.Hostname, cli.Hostname()) {
		res.Status = task.StatusFail
		res.Message = fmt.Sprintf("hostname not match: device reports %s", cli.Hostname())
		return finish(&res)
	}

	wait := time.Duration(req.Wait * float64(time.Second))
	for i, command := range req.Commands {
		cr, err := cli.Execute(command)
		res.Output = append(res.Output, cr)
		if err != nil {
			res.Status = task.StatusFail
			res.Message = err.Error()
			return finish(&res)
		}
		if wait > 0 && i < len(req.Commands)-1 {
			time.Sleep(wait)
		}
	}

	res.Status = task.StatusSuccess
	res.Message = "ok"
	return finish(&res)
}

func handleSNMP(payload []byte) []byte {
	start := time.Now()

	var req task.SNMPRequest
	if err := serializer.JSON.Unmarshal(payload, &req); err != nil {
		res := &task.SNMPResult{
			Status:  task.StatusError,
			Message: fmt.Sprintf("invalid task payload: %s", err),
			StartAt: start.Format(task.TimeLayout),
		}
		return finishSNMP(res)
	}

	res := session.RunSNMP(&req)
	res.TaskID = req.TaskID
	res.IP = req.IP
	res.StartAt = start.Format(task.TimeLayout)
	return finishSNMP(res)
}

// handleTest answers immediately with a payload of random size. Used for
// smoke checks of the full broker round trip without touching a device.
func handleTest(payload []byte) []byte {
	start := time.Now()
	res := task.Result{StartAt: start.Format(task.TimeLayout)}

	var req task.CLIRequest
	if err := serializer.JSON.Unmarshal(payload, &req); err == nil {
		res.TaskID = req.TaskID
		res.IP = req.IP
	}

	res.Status = task.StatusSuccess
	res.Message = strings.Repeat("x", rand.Intn(4096)+1)
	return finish(&res)
}

func finish(res *task.Result) []byte {
	res.FinishAt = time.Now().Format(task.TimeLayout)
	return mustMarshal(res)
}

func finishSNMP(res *task.SNMPResult) []byte {
	res.FinishAt = time.Now().Format(task.TimeLayout)
	return mustMarshal(res)
}

// mustMarshal falls back to a minimal handwritten error document so the
// broker never waits on a reply that cannot be encoded.
func mustMarshal(v any) []byte {
	data, err := serializer.JSON.Marshal(v)
	if err != nil {
		return []byte(`{"status":"error","message":"result encoding failed"}`)
	}
	return data
}
