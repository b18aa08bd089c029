package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netgate-io/netgate/internal/broker/directory"
	"github.com/netgate-io/netgate/internal/broker/dispatcher"
	"github.com/netgate-io/netgate/internal/broker/registry"
	"github.com/netgate-io/netgate/internal/serializer"
	"github.com/stretchr/testify/require"
)

// stubSubmitter records the last submitted task and replies with a canned
// payload.
type stubSubmitter struct {
	channel string
	taskID  string
	payload map[string]any
	reply   []byte
	err     error
}

func (s *stubSubmitter) Submit(channel, taskID string, payload []byte) ([]byte, error) {
	s.channel = channel
	s.taskID = taskID
	s.payload = map[string]any{}
	_ = serializer.JSON.Unmarshal(payload, &s.payload)
	if s.err != nil {
		return nil, s.err
	}
	return s.reply, nil
}

func testServer(t *testing.T) (*Server, *stubSubmitter, *directory.Directory) {
	t.Helper()

	dir := directory.New(filepath.Join(t.TempDir(), "device_credential.json"))
	require.NoError(t, dir.SetCommon(directory.Profile{Username: "common-user", Password: "common-pw", Community: "public"}))
	require.NoError(t, dir.Upsert(directory.Profile{IP: "10.0.0.1", Hostname: "sw1", Vendor: "cisco", Platform: "nexus"}))

	reg := registry.New(map[string]int{"cisco": 16012, "snmp": 16011}, time.Minute)
	_, err := reg.Announce("cisco", "w1")
	require.NoError(t, err)
	_, err = reg.Announce("snmp", "w2")
	require.NoError(t, err)

	sub := &stubSubmitter{reply: []byte(`{"status":"success","message":"ok"}`)}
	return New(dir, reg, sub), sub, dir
}

func TestSyncPost(t *testing.T) {
	srv, sub, _ := testServer(t)

	body := `{"ip":"10.0.0.1","commands":["show version"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/cli", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"success","message":"ok"}`, rec.Body.String())

	require.Equal(t, "cisco", sub.channel)
	require.NotEmpty(t, sub.taskID)
	require.Equal(t, sub.taskID, sub.payload["task_id"], "payload task_id must match the submitted ID")
	require.Equal(t, "cisco", sub.payload["channel"], "workers read the vendor family from the payload")
	require.Equal(t, "common-user", sub.payload["username"], "common credentials must be merged in")
}

func TestSyncGetAliases(t *testing.T) {
	srv, sub, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/cli?ip=10.0.0.1&cmd=show+version%3Bshow+inventory&u=alice&p=pw", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", sub.payload["username"])
	require.Equal(t, "pw", sub.payload["password"])

	commands, ok := sub.payload["commands"].([]any)
	require.True(t, ok, "commands = %T", sub.payload["commands"])
	require.Len(t, commands, 2)
	require.Equal(t, "show version", commands[0])
}

func TestSyncValidationErrors(t *testing.T) {
	srv, _, _ := testServer(t)

	tests := map[string]struct {
		body        string
		wantMessage string
	}{
		"no commands": {body: `{"ip":"10.0.0.1"}`, wantMessage: "no valid commands"},
		"no target":   {body: `{"commands":["show version"]}`, wantMessage: "no valid ip or hostname"},
		"bad json":    {body: `{{{`, wantMessage: "invalid json body"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/cli", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var reply map[string]string
			require.NoError(t, serializer.JSON.Unmarshal(rec.Body.Bytes(), &reply))
			require.Equal(t, "error", reply["status"])
			require.Contains(t, reply["message"], tt.wantMessage)
		})
	}
}

func TestSyncBrokerTimeout(t *testing.T) {
	srv, sub, _ := testServer(t)
	sub.err = dispatcher.ErrTimeout

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/cli", strings.NewReader(`{"ip":"10.0.0.1","commands":["show version"]}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	var reply map[string]string
	require.NoError(t, serializer.JSON.Unmarshal(rec.Body.Bytes(), &reply))
	require.Equal(t, "fail", reply["status"], "a broker timeout is a task failure, not a rejection")
	require.Equal(t, "timeout", reply["message"])
}

func TestCredentialUpsertWithoutIP(t *testing.T) {
	srv, _, dir := testServer(t)
	stored := len(dir.All())

	// One bare profile with no IP is a validation error and stores nothing.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/credential", strings.NewReader(`{"hostname":"orphan"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "no ip info")
	require.Len(t, dir.All(), stored)

	// Inside a batch the same profile is skipped, not fatal.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/credential", strings.NewReader(`[{"hostname":"orphan"},{"ip":"10.0.0.9"}]`))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, found := dir.Lookup("10.0.0.9")
	require.True(t, found)
	_, found = dir.Lookup("orphan")
	require.False(t, found)
}

func TestCredentialCRUD(t *testing.T) {
	srv, _, _ := testServer(t)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodPost, "/api/v1/credential", `[{"ip":"10.0.0.2","hostname":"sw2"},{"ip":"10.0.0.3"}]`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodGet, "/api/v1/credential/sw2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"success"`)
	require.Contains(t, rec.Body.String(), "10.0.0.2")

	// Unknown device: common defaults with a warning.
	rec = do(http.MethodGet, "/api/v1/credential/ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"warning"`)
	require.Contains(t, rec.Body.String(), "common-user")

	rec = do(http.MethodDelete, "/api/v1/credential/10.0.0.2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(http.MethodDelete, "/api/v1/credential/10.0.0.2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCredentialCommon(t *testing.T) {
	srv, _, dir := testServer(t)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/credential_common", strings.NewReader(`{"username":"new-default"}`))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "new-default", dir.Common().Username)
	require.Equal(t, "common-pw", dir.Common().Password, "blank fields must not reset existing defaults")
}

func TestDeviceSearch(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/device/cisco", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "sw1")

	// Mixed operators are a grammar violation.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/device/"+url.PathEscape("a|b&c"), nil)
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
