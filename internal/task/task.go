// Package task defines the wire contract between the broker and the workers.
//
// A task travels as a JSON document: the merged device profile plus the
// command list and broker bookkeeping (task_id). The worker stamps the result
// with the same task_id plus start@/finish@ timestamps so the broker can
// correlate it back to the waiting caller.
package task

// Category of a sync request, from the URL path.
const (
	CategoryCLI  = "cli"
	CategorySNMP = "snmp"
)

// Status of a whole task.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
	StatusError   Status = "error"
)

// CommandStatus classifies the outcome of a single command.
type CommandStatus string

const (
	CommandOk      CommandStatus = "Ok"
	CommandError   CommandStatus = "Error"
	CommandTimeout CommandStatus = "Timeout"
)

// TimeLayout is the timestamp format used on the wire.
const TimeLayout = "2006-01-02 15:04:05"

// CLIRequest is the typed view of a task payload for CLI channels.
type CLIRequest struct {
	TaskID         string   `json:"task_id"`
	IP             string   `json:"ip"`
	Hostname       string   `json:"hostname,omitempty"`
	Method         string   `json:"method,omitempty"`
	Port           int      `json:"port,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	Username       string   `json:"username,omitempty"`
	Password       string   `json:"password,omitempty"`
	EnablePassword string   `json:"enable_password,omitempty"`
	Vendor         string   `json:"vendor,omitempty"`
	Channel        string   `json:"channel,omitempty"`
	Commands       []string `json:"commands"`
	Wait           float64  `json:"wait,omitempty"`
	ExtraPrompts   []string `json:"extra_prompts,omitempty"`
}

// SNMPCommands describes one SNMP operation. It rides in the "commands" field
// of an SNMP-category request, which is an object rather than an array.
type SNMPCommands struct {
	Operate        string   `json:"operate"`
	OIDs           []string `json:"oids"`
	Port           int      `json:"port,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	Retries        int      `json:"retries,omitempty"`
	NonRepeaters   int      `json:"non_repeaters,omitempty"`
	MaxRepetitions int      `json:"max_repetitions,omitempty"`
}

// SNMPRequest is the typed view of a task payload for the snmp channel.
type SNMPRequest struct {
	TaskID    string       `json:"task_id"`
	IP        string       `json:"ip"`
	Community string       `json:"community,omitempty"`
	Commands  SNMPCommands `json:"commands"`
}

// CommandResult is the captured outcome of one command on one device.
type CommandResult struct {
	Command   string        `json:"command"`
	Status    CommandStatus `json:"status"`
	Output    string        `json:"output"`
	Timestamp string        `json:"timestamp"`
}

// Result aggregates everything a worker sends back for one task.
type Result struct {
	TaskID   string          `json:"task_id,omitempty"`
	IP       string          `json:"ip,omitempty"`
	Hostname string          `json:"hostname,omitempty"`
	Status   Status          `json:"status"`
	Message  string          `json:"message"`
	Output   []CommandResult `json:"output,omitempty"`
	StartAt  string          `json:"start@,omitempty"`
	FinishAt string          `json:"finish@,omitempty"`
}

// VarBind is one OID/value pair of an SNMP reply.
type VarBind struct {
	OID   string `json:"oid"`
	Value string `json:"value"`
}

// SNMPResult is the reply shape of the snmp channel.
type SNMPResult struct {
	TaskID   string    `json:"task_id,omitempty"`
	IP       string    `json:"ip,omitempty"`
	Status   Status    `json:"status"`
	Message  string    `json:"message"`
	Output   []VarBind `json:"output,omitempty"`
	StartAt  string    `json:"start@,omitempty"`
	FinishAt string    `json:"finish@,omitempty"`
}
