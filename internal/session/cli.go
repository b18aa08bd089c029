package session

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/netgate-io/netgate/internal/config"
	"github.com/netgate-io/netgate/internal/family"
	"github.com/netgate-io/netgate/internal/task"
)

// Login failures, surfaced as task failures and never as broker errors.
var (
	ErrLoginTimeout     = errors.New("Timeout")
	ErrConnectionClosed = errors.New("Connection_Closed")
	ErrLoginFailed      = errors.New("Wrong username or password")
	ErrEnableFailed     = errors.New("Wrong enable password")
	ErrSSHVersion       = errors.New("SSH version not supported")
)

// state of one device session.
type state int

const (
	stateDisconnected state = iota
	stateConnecting
	stateAuthenticating
	stateEnableEscalating
	stateReady
	stateExecuting
)

var (
	reUsername = regexp.MustCompile(`sername:`)
	rePassword = regexp.MustCompile(`assword:`)
	reHostKey  = regexp.MustCompile(`\(yes/no[^)]*\)`)
	reNewline  = regexp.MustCompile(`.*\r\n`)
)

// CLI drives one interactive console session: login, escalate, execute,
// logout. A CLI is single-use and strictly sequential; it must be Closed on
// every exit path.
type CLI struct {
	req     *task.CLIRequest
	fam     family.Family
	dial    Dialer
	timeout time.Duration

	state    state
	tr       Transport
	exp      *expecter
	prompt   string
	hostname string
	execPats []*regexp.Regexp
}

// Option configures a CLI before Login.
type Option func(*CLI)

// WithDialer replaces the network dialer, used by tests to script a device.
func WithDialer(d Dialer) Option {
	return func(c *CLI) { c.dial = d }
}

func NewCLI(req *task.CLIRequest, fam family.Family, opts ...Option) *CLI {
	timeout := config.DefaultSessionTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}
	c := &CLI{
		req:     req,
		fam:     fam,
		dial:    Dial,
		timeout: timeout,
		state:   stateDisconnected,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Hostname returns the device's self-reported name, known once Login
// succeeded.
func (c *CLI) Hostname() string { return c.hostname }

// Prompt returns the exact prompt captured at login, used to detect command
// completion.
func (c *CLI) Prompt() string { return c.prompt }

// Login connects and authenticates, applying the transport fallback rules:
// a connection closed right away swaps ssh and telnet once, an SSH protocol
// version mismatch retries once with the legacy algorithm set. It never
// cycles further.
func (c *CLI) Login() error {
	method := strings.ToLower(c.req.Method)
	if method == "" {
		method = MethodSSH
	}

	err := c.attempt(method)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConnectionClosed):
		fallback := MethodTelnet
		if method == MethodTelnet {
			fallback = MethodSSH
		}
		slog.Info("connection closed, retrying with fallback transport", "ip", c.req.IP, "method", fallback)
		return c.attempt(fallback)
	case errors.Is(err, ErrSSHVersion) && method == MethodSSH:
		slog.Info("ssh version mismatch, retrying with legacy algorithms", "ip", c.req.IP)
		return c.attempt(MethodSSHv1)
	default:
		return err
	}
}

func (c *CLI) attempt(method string) error {
	c.state = stateConnecting
	tr, err := c.dial(method, c.req.IP, c.req.Port, c.req.Username, c.req.Password, c.timeout)
	if err != nil {
		c.state = stateDisconnected
		switch {
		case errors.Is(err, errVersionMismatch):
			return fmt.Errorf("%w: %s", ErrSSHVersion, err)
		case errors.Is(err, errConnectionClosed):
			return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
		case strings.Contains(err.Error(), "unable to authenticate"),
			strings.Contains(err.Error(), "no supported methods remain"):
			return fmt.Errorf("%w: %s", ErrLoginFailed, err)
		default:
			return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
		}
	}
	c.tr = tr
	c.exp = newExpecter(tr)

	if err := c.authenticate(); err != nil {
		c.teardown()
		return err
	}
	return nil
}

// promptPatterns compiles one loose pattern per family prompt suffix, in
// family order.
func (c *CLI) promptPatterns() []*regexp.Regexp {
	pats := make([]*regexp.Regexp, 0, len(c.fam.PromptSuffixes))
	for _, s := range c.fam.PromptSuffixes {
		pats = append(pats, regexp.MustCompile(`.*`+regexp.QuoteMeta(s)))
	}
	return pats
}

// authenticate runs the Authenticating and EnableEscalating states: it
// expects one of {username prompt, password prompt, host-key confirmation,
// already-at-shell} and walks the credential exchange to a ready prompt.
func (c *CLI) authenticate() error {
	c.state = stateAuthenticating
	prompts := c.promptPatterns()

	first := append([]*regexp.Regexp{reUsername, rePassword, reHostKey}, prompts...)
	m, err := c.exp.expect(c.timeout, first...)
	if err != nil {
		return loginErr(err)
	}

	suffix := ""
	switch m.index {
	case 0: // username prompt
		if err := c.tr.SendLine(c.req.Username); err != nil {
			return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
		}
		if _, err := c.exp.expect(c.timeout, rePassword); err != nil {
			return loginErr(err)
		}
		suffix, err = c.sendPassword(prompts)
	case 2: // host-key confirmation
		if err := c.tr.SendLine("yes"); err != nil {
			return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
		}
		if _, err := c.exp.expect(c.timeout, rePassword); err != nil {
			return loginErr(err)
		}
		suffix, err = c.sendPassword(prompts)
	case 1: // password prompt
		suffix, err = c.sendPassword(prompts)
	default: // already at a shell prompt
		suffix = c.fam.PromptSuffixes[m.index-3]
	}
	if err != nil {
		return err
	}

	if suffix == ">" && c.req.EnablePassword != "" && hasSuffix(c.fam, "#") {
		suffix, err = c.escalate()
		if err != nil {
			return err
		}
	}

	return c.ready(suffix)
}

func (c *CLI) sendPassword(prompts []*regexp.Regexp) (string, error) {
	if err := c.tr.SendLine(c.req.Password); err != nil {
		return "", fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}

	// Re-prompted credentials mean the password was rejected.
	second := append([]*regexp.Regexp{reUsername, rePassword}, prompts...)
	m, err := c.exp.expect(c.timeout, second...)
	if err != nil {
		return "", loginErr(err)
	}
	if m.index < 2 {
		return "", ErrLoginFailed
	}
	return c.fam.PromptSuffixes[m.index-2], nil
}

// escalate raises privileges from the user-mode prompt.
func (c *CLI) escalate() (string, error) {
	c.state = stateEnableEscalating
	if err := c.tr.SendLine("enable"); err != nil {
		return "", fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}

	m, err := c.exp.expect(config.EnablePromptTimeout, rePassword, regexp.MustCompile(`>`))
	if err != nil {
		return "", loginErr(err)
	}
	if m.index == 1 {
		// device did not ask for a secret, still in user mode
		return ">", nil
	}

	if err := c.tr.SendLine(c.req.EnablePassword); err != nil {
		return "", fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}
	m, err = c.exp.expect(c.timeout, rePassword, regexp.MustCompile(`.*#`))
	if err != nil {
		return "", loginErr(err)
	}
	if m.index == 0 {
		return "", ErrEnableFailed
	}
	return "#", nil
}

// ready disables paging, captures the exact prompt and parses the hostname
// out of it, then builds the expectation set used while executing commands.
func (c *CLI) ready(suffix string) error {
	suffixPat := regexp.MustCompile(regexp.QuoteMeta(suffix))

	if suffix == "#" || len(c.fam.PromptSuffixes) == 1 {
		for _, cmd := range c.fam.NoPagerCommands {
			if err := c.tr.SendLine(cmd); err != nil {
				return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
			}
			if _, err := c.exp.expect(c.timeout, suffixPat); err != nil {
				return loginErr(err)
			}
		}
	}

	if err := c.tr.SendLine(""); err != nil {
		return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}
	m, err := c.exp.expect(c.timeout, suffixPat)
	if err != nil {
		return loginErr(err)
	}

	c.prompt = lastLine(m.before) + suffix
	c.hostname = c.fam.Hostname(c.prompt)
	c.fam = family.Detect(c.fam, c.prompt)

	c.execPats = []*regexp.Regexp{reNewline, regexp.MustCompile(regexp.QuoteMeta(c.prompt))}
	for _, p := range c.fam.RiskyPatterns {
		c.execPats = append(c.execPats, regexp.MustCompile(p))
	}
	for _, p := range c.req.ExtraPrompts {
		c.execPats = append(c.execPats, regexp.MustCompile(regexp.QuoteMeta(p)))
	}

	c.state = stateReady
	slog.Info("login succeeded", "ip", c.req.IP, "hostname", c.hostname)
	return nil
}

// Execute runs one command and captures its output until the remembered
// prompt reappears, a risky pattern shows up, or the timeout elapses. The
// returned error is non-nil only when the session itself died; a timeout is
// reported in the result so later commands can still be attempted.
func (c *CLI) Execute(command string) (task.CommandResult, error) {
	c.state = stateExecuting
	res := task.CommandResult{Command: command}

	if err := c.tr.SendLine(command); err != nil {
		res.Status = task.CommandError
		res.Timestamp = time.Now().Format(task.TimeLayout)
		return res, fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	}

	var out strings.Builder
	var sessionErr error
	status := task.CommandOk
	for {
		m, err := c.exp.expect(c.timeout, c.execPats...)
		out.WriteString(m.before)
		out.WriteString(m.text)
		if errors.Is(err, ErrExpectTimeout) {
			status = task.CommandTimeout
			slog.Error("command timed out", "ip", c.req.IP, "command", command)
			break
		}
		if errors.Is(err, ErrClosed) {
			status = task.CommandTimeout
			sessionErr = ErrConnectionClosed
			break
		}
		if m.index != 0 { // anything but a plain new line terminates the read
			break
		}
	}

	res.Output = out.String()
	if status == task.CommandOk && c.fam.ErrorSign != "" && strings.Contains(res.Output, c.fam.ErrorSign) {
		status = task.CommandError
	}
	res.Status = status
	res.Timestamp = time.Now().Format(task.TimeLayout)
	c.state = stateReady
	return res, sessionErr
}

// Close sends the graceful logout sequence best-effort and always releases
// the transport.
func (c *CLI) Close() {
	if c.tr == nil {
		return
	}
	for _, cmd := range c.fam.LogoutCommands {
		if err := c.tr.SendLine(cmd); err != nil {
			break
		}
	}
	c.teardown()
	slog.Info("disconnected", "ip", c.req.IP)
}

func (c *CLI) teardown() {
	if c.tr != nil {
		_ = c.tr.Close()
		c.tr = nil
	}
	if c.exp != nil {
		c.exp.close()
		c.exp = nil
	}
	c.state = stateDisconnected
}

func loginErr(err error) error {
	switch {
	case errors.Is(err, ErrExpectTimeout):
		return ErrLoginTimeout
	case errors.Is(err, ErrClosed):
		return ErrConnectionClosed
	default:
		return err
	}
}

func hasSuffix(f family.Family, s string) bool {
	for _, p := range f.PromptSuffixes {
		if p == s {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\r\n"), "\n")
	return strings.TrimRight(lines[len(lines)-1], "\r")
}
