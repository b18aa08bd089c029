package session

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ziutek/telnet"
	"golang.org/x/crypto/ssh"
)

// Transport is one live console connection to a device. Implementations are
// not safe for concurrent use; a session owns its transport exclusively.
type Transport interface {
	io.Reader
	SendLine(s string) error
	Close() error
}

const (
	MethodSSH    = "ssh"
	MethodSSHv1  = "ssh_1"
	MethodTelnet = "telnet"
)

var errConnectionClosed = errors.New("connection closed by remote")
var errVersionMismatch = errors.New("ssh protocol version not supported")

// Dialer opens a transport to a device, used as an injection point by tests.
type Dialer func(method, ip string, port int, username, password string, timeout time.Duration) (Transport, error)

// Dial connects with the given method. SSH protocol-version mismatches and
// immediately-closed connections are reported as distinguishable errors so
// the caller can apply its fallback rules.
func Dial(method, ip string, port int, username, password string, timeout time.Duration) (Transport, error) {
	switch method {
	case MethodTelnet:
		if port == 0 {
			port = 23
		}
		return dialTelnet(ip, port, timeout)
	case MethodSSHv1:
		if port == 0 {
			port = 22
		}
		return dialSSH(ip, port, username, password, timeout, true)
	default:
		if port == 0 {
			port = 22
		}
		return dialSSH(ip, port, username, password, timeout, false)
	}
}

type sshTransport struct {
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
}

func dialSSH(ip string, port int, username, password string, timeout time.Duration, legacy bool) (Transport, error) {
	cfg := &ssh.ClientConfig{
		User: username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	if legacy {
		// Old gear only speaks long-deprecated algorithms.
		cfg.Config = ssh.Config{
			KeyExchanges: []string{"diffie-hellman-group1-sha1", "diffie-hellman-group14-sha1", "diffie-hellman-group-exchange-sha1"},
			Ciphers:      []string{"aes128-cbc", "3des-cbc", "aes128-ctr", "aes192-ctr", "aes256-ctr"},
		}
		cfg.HostKeyAlgorithms = []string{"ssh-rsa", "ssh-dss"}
	}

	client, err := ssh.Dial("tcp", net.JoinHostPort(ip, strconv.Itoa(port)), cfg)
	if err != nil {
		return nil, classifyDialError(err)
	}

	sess, err := client.NewSession()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to open session on %s: %w", ip, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// A pty makes the remote merge stderr into the terminal stream and emit
	// interactive prompts.
	if err := sess.RequestPty("dumb", 0, 2000, modes); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, fmt.Errorf("pty request failed on %s: %w", ip, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, err
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, err
	}

	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		_ = client.Close()
		return nil, fmt.Errorf("shell request failed on %s: %w", ip, err)
	}

	return &sshTransport{client: client, sess: sess, stdin: stdin, stdout: stdout}, nil
}

func classifyDialError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "version"):
		return fmt.Errorf("%w: %s", errVersionMismatch, msg)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %s", errConnectionClosed, msg)
	default:
		return err
	}
}

func (t *sshTransport) Read(p []byte) (int, error) { return t.stdout.Read(p) }

func (t *sshTransport) SendLine(s string) error {
	_, err := t.stdin.Write([]byte(s + "\n"))
	return err
}

func (t *sshTransport) Close() error {
	_ = t.sess.Close()
	return t.client.Close()
}

type telnetTransport struct {
	conn *telnet.Conn
}

func dialTelnet(ip string, port int, timeout time.Duration) (Transport, error) {
	conn, err := telnet.DialTimeout("tcp", net.JoinHostPort(ip, strconv.Itoa(port)), timeout)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", errConnectionClosed, err)
		}
		return nil, err
	}
	conn.SetUnixWriteMode(true)
	return &telnetTransport{conn: conn}, nil
}

func (t *telnetTransport) Read(p []byte) (int, error) { return t.conn.Read(p) }

func (t *telnetTransport) SendLine(s string) error {
	_, err := t.conn.Write([]byte(s + "\n"))
	return err
}

func (t *telnetTransport) Close() error { return t.conn.Close() }
