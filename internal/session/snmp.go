package session

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/netgate-io/netgate/internal/config"
	"github.com/netgate-io/netgate/internal/task"
)

// RunSNMP performs one SNMP operation against a device. There is no
// persistent session: each call connects, runs a single get, walk or bulk
// walk, and maps every remote error to a structured error result.
func RunSNMP(req *task.SNMPRequest) *task.SNMPResult {
	cmd := req.Commands

	port := cmd.Port
	if port == 0 {
		port = config.DefaultSNMPPort
	}
	timeout := config.DefaultSNMPTimeout
	if cmd.Timeout > 0 {
		timeout = time.Duration(cmd.Timeout) * time.Second
	}
	retries := config.DefaultSNMPRetries
	if cmd.Retries > 0 {
		retries = cmd.Retries
	}
	maxRep := uint32(config.DefaultSNMPMaxRepetitions)
	if cmd.MaxRepetitions > 0 {
		maxRep = uint32(cmd.MaxRepetitions)
	}

	client := &gosnmp.GoSNMP{
		Target:             req.IP,
		Port:               uint16(port),
		Community:          req.Community,
		Version:            gosnmp.Version2c,
		Timeout:            timeout,
		Retries:            retries,
		NonRepeaters:       cmd.NonRepeaters,
		MaxRepetitions:     maxRep,
		ExponentialTimeout: false,
	}

	if err := client.Connect(); err != nil {
		slog.Error("snmp connect failed", "ip", req.IP, "error", err)
		return snmpError(err)
	}
	defer func() { _ = client.Conn.Close() }()

	oids := make([]string, 0, len(cmd.OIDs))
	for _, o := range cmd.OIDs {
		oids = append(oids, strings.Trim(o, "."))
	}

	var output []task.VarBind
	var err error
	switch cmd.Operate {
	case "get":
		output, err = snmpGet(client, oids)
	case "walk":
		output, err = snmpWalk(client, oids, false)
	case "bulk_walk":
		output, err = snmpWalk(client, oids, true)
	default:
		return &task.SNMPResult{
			Status:  task.StatusError,
			Message: "Not support SNMP operate",
		}
	}
	if err != nil {
		slog.Error("snmp operation failed", "ip", req.IP, "operate", cmd.Operate, "error", err)
		return snmpError(err)
	}

	return &task.SNMPResult{Status: task.StatusSuccess, Output: output}
}

func snmpGet(client *gosnmp.GoSNMP, oids []string) ([]task.VarBind, error) {
	packet, err := client.Get(oids)
	if err != nil {
		return nil, err
	}
	if packet.Error != gosnmp.NoError {
		return nil, fmt.Errorf("remote error: %s at index %d", packet.Error, packet.ErrorIndex)
	}

	output := make([]task.VarBind, 0, len(packet.Variables))
	for _, v := range packet.Variables {
		output = append(output, varBind(v))
	}
	return output, nil
}

// snmpWalk walks each requested subtree; gosnmp stops as soon as a returned
// OID leaves the subtree, which is exactly the contract wanted here.
func snmpWalk(client *gosnmp.GoSNMP, oids []string, bulk bool) ([]task.VarBind, error) {
	var output []task.VarBind
	for _, oid := range oids {
		walk := client.WalkAll
		if bulk {
			walk = client.BulkWalkAll
		}
		pdus, err := walk(oid)
		if err != nil {
			return nil, err
		}
		for _, v := range pdus {
			output = append(output, varBind(v))
		}
	}
	return output, nil
}

func varBind(v gosnmp.SnmpPDU) task.VarBind {
	var value string
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			value = string(b)
		} else {
			value = fmt.Sprint(v.Value)
		}
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView:
		value = v.Type.String()
	default:
		value = fmt.Sprint(v.Value)
	}
	return task.VarBind{OID: strings.TrimPrefix(v.Name, "."), Value: value}
}

func snmpError(err error) *task.SNMPResult {
	return &task.SNMPResult{Status: task.StatusError, Message: err.Error()}
}
