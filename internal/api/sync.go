package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/netgate-io/netgate/internal/broker/dispatcher"
	"github.com/netgate-io/netgate/internal/broker/resolve"
	"github.com/netgate-io/netgate/internal/serializer"
	"github.com/spf13/cast"
)

// Short query-string aliases accepted on GET submissions.
var paramAliases = map[string]string{
	"cmd": "commands",
	"u":   "username",
	"p":   "password",
	"ch":  "channel",
}

// handleSync accepts a task, resolves credentials and channel, dispatches it
// to a worker and relays the reply body untouched.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	category := urlParam(r, "category")

	params, err := s.requestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, channel, err := resolve.Resolve(category, params, s.dir, s.reg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	taskID := uuid.NewString()
	payload["task_id"] = taskID
	payload["channel"] = channel

	data, err := serializer.JSON.Marshal(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	slog.Info("dispatching task", "task_id", taskID, "channel", channel, "ip", payload["ip"])

	reply, err := s.dispatcher.Submit(channel, taskID, data)
	if err != nil {
		// A broker-side timeout is a task failure, not a rejected request:
		// clients key on the status field to tell the two apart.
		if errors.Is(err, dispatcher.ErrTimeout) {
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{
				"status":  "fail",
				"message": "timeout",
			})
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeRaw(w, reply)
}

// requestParams flattens the request into the loose map the resolver works
// on: the JSON body for POST, the query string (with aliases expanded and
// commands split on ";") for GET.
func (s *Server) requestParams(r *http.Request) (map[string]any, error) {
	params := map[string]any{}

	if r.Method == http.MethodPost {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			if err := serializer.JSON.Unmarshal(body, &params); err != nil {
				return nil, errors.New("invalid json body")
			}
		}
		return params, nil
	}

	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		if canonical, ok := paramAliases[key]; ok {
			key = canonical
		}
		params[key] = values[0]
	}

	// GET carries commands as a single ";"-separated string and every other
	// field as text; numeric fields are coerced so workers can decode them.
	if raw, ok := params["commands"].(string); ok {
		var commands []any
		for _, c := range strings.Split(raw, ";") {
			if c = strings.TrimSpace(c); c != "" {
				commands = append(commands, c)
			}
		}
		params["commands"] = commands
	}
	for _, key := range []string{"port", "timeout"} {
		if v, ok := params[key].(string); ok {
			params[key] = cast.ToInt(v)
		}
	}
	if v, ok := params["wait"].(string); ok {
		params["wait"] = cast.ToFloat64(v)
	}

	return params, nil
}
