package worker

import (
	"testing"

	"github.com/netgate-io/netgate/internal/serializer"
	"github.com/netgate-io/netgate/internal/task"
)

func TestHandleTest(t *testing.T) {
	payload := []byte(`{"task_id":"id-1","ip":"10.0.0.1","commands":["noop"]}`)

	var res task.Result
	if err := serializer.JSON.Unmarshal(handleTest(payload), &res); err != nil {
		t.Fatal(err)
	}

	if res.Status != task.StatusSuccess {
		t.Errorf("status = %q, want success", res.Status)
	}
	if res.TaskID != "id-1" || res.IP != "10.0.0.1" {
		t.Errorf("identity not stamped: %+v", res)
	}
	if res.StartAt == "" || res.FinishAt == "" {
		t.Errorf("timestamps not stamped: %+v", res)
	}
	if res.Message == "" {
		t.Error("test handler must return a non-empty payload")
	}
}

func TestHandleCLIInvalidPayload(t *testing.T) {
	var res task.Result
	if err := serializer.JSON.Unmarshal(handleCLI([]byte(`not json`)), &res); err != nil {
		t.Fatal(err)
	}

	if res.Status != task.StatusError {
		t.Errorf("status = %q, want error", res.Status)
	}
	if res.Message == "" {
		t.Error("error result must carry a message")
	}
}

func TestHandleSNMPInvalidPayload(t *testing.T) {
	var res task.SNMPResult
	if err := serializer.JSON.Unmarshal(handleSNMP([]byte(`not json`)), &res); err != nil {
		t.Fatal(err)
	}

	if res.Status != task.StatusError {
		t.Errorf("status = %q, want error", res.Status)
	}
}

func TestHandlerFor(t *testing.T) {
	// Vendor channels share the CLI handler; snmp and test have their own.
	for _, channel := range []string{"cisco", "brocade", "huawei", "h3c", "f5", "snmp", "test"} {
		if handlerFor(channel) == nil {
			t.Errorf("handlerFor(%q) = nil", channel)
		}
	}
}
