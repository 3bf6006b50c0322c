package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/edgecheck-network/edgecheck/pkg/util"
	"github.com/edgecheck-network/edgecheck/pkg/version"
)

// SSHDialer dials IOS devices over SSH with password authentication.
type SSHDialer struct {
	Options Options
	// Prober is consulted before dialing when Options.PingFirst is set.
	Prober *Prober
}

// NewSSHDialer creates an SSH dialer.
func NewSSHDialer(opts Options) *SSHDialer {
	d := &SSHDialer{Options: opts}
	if opts.PingFirst {
		d.Prober = NewProber()
	}
	return d
}

// Dial connects and authenticates to address. Connection failures wrap
// util.ErrUnreachable; rejected credentials wrap util.ErrAuthentication.
func (d *SSHDialer) Dial(ctx context.Context, address string, creds Credentials) (Session, error) {
	if d.Options.PingFirst && d.Prober != nil {
		if err := d.Prober.Probe(ctx, address); err != nil {
			return nil, util.NewDeviceError(address, "ping", err)
		}
	}

	config := &ssh.ClientConfig{
		User: creds.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(creds.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = creds.Password
				}
				return answers, nil
			}),
		},
		// Edge routers are reached by address from inventory; host keys are not pinned.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.Options.ConnectTimeout,
		ClientVersion:   version.SSHClientVersion(),
	}

	addr := hostPort(address, d.Options.Port)
	dialer := &net.Dialer{Timeout: d.Options.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, util.NewDeviceError(address, "dial", fmt.Errorf("%w: %v", util.ErrUnreachable, err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, util.NewDeviceError(address, "login", classifyHandshake(err))
	}

	util.WithDevice(address).Debugf("SSH session established as %s", creds.Username)
	return &sshSession{
		address:        address,
		client:         ssh.NewClient(sshConn, chans, reqs),
		commandTimeout: d.Options.CommandTimeout,
	}, nil
}

// classifyHandshake maps an SSH handshake error onto the failure taxonomy.
func classifyHandshake(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return fmt.Errorf("%w: %v", util.ErrAuthentication, err)
	}
	return fmt.Errorf("%w: %v", util.ErrUnreachable, err)
}

// hostPort appends port unless address already carries one.
func hostPort(address string, port int) string {
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address
	}
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(address, strconv.Itoa(port))
}

type sshSession struct {
	address        string
	client         *ssh.Client
	commandTimeout time.Duration
}

// Run executes command on a fresh exec channel.
func (s *sshSession) Run(ctx context.Context, command string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sess, err := s.client.NewSession()
	if err != nil {
		return "", util.NewDeviceError(s.address, "run", fmt.Errorf("%w: opening channel: %v", util.ErrUnreachable, err))
	}
	defer sess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			var exitErr *ssh.ExitError
			if errors.As(r.err, &exitErr) {
				// IOS reports some empty show commands with a non-zero status.
				return string(r.out), nil
			}
			return "", util.NewDeviceError(s.address, "run", fmt.Errorf("%q: %w", command, r.err))
		}
		util.WithDevice(s.address).Debugf("ran %q (%d bytes)", command, len(r.out))
		return string(r.out), nil
	case <-ctx.Done():
		sess.Signal(ssh.SIGKILL)
		return "", util.NewDeviceError(s.address, "run", fmt.Errorf("%q: %w", command, ctx.Err()))
	}
}

// Configure applies lines through an interactive shell, the only way IOS
// accepts configuration over SSH.
func (s *sshSession) Configure(ctx context.Context, lines []string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	sess, err := s.client.NewSession()
	if err != nil {
		return util.NewDeviceError(s.address, "configure", fmt.Errorf("%w: opening channel: %v", util.ErrUnreachable, err))
	}
	defer sess.Close()

	stdin, err := sess.StdinPipe()
	if err != nil {
		return util.NewDeviceError(s.address, "configure", err)
	}
	var out bytes.Buffer
	sess.Stdout = &out
	if err := sess.Shell(); err != nil {
		return util.NewDeviceError(s.address, "configure", err)
	}

	script := BuildConfigScript(lines)
	done := make(chan error, 1)
	go func() {
		_, werr := io.WriteString(stdin, script)
		stdin.Close()
		if werr != nil {
			done <- werr
			return
		}
		done <- sess.Wait()
	}()

	select {
	case err := <-done:
		var exitErr *ssh.ExitError
		var missing *ssh.ExitMissingError
		if err != nil && !errors.As(err, &exitErr) && !errors.As(err, &missing) && err != io.EOF {
			return util.NewDeviceError(s.address, "configure", err)
		}
	case <-ctx.Done():
		sess.Signal(ssh.SIGKILL)
		return util.NewDeviceError(s.address, "configure", ctx.Err())
	}

	if bad := RejectedLine(out.String()); bad != "" {
		return util.NewDeviceError(s.address, "configure", fmt.Errorf("device rejected configuration: %s", bad))
	}
	util.WithDevice(s.address).Debugf("applied %d configuration lines", len(lines))
	return nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

func (s *sshSession) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.commandTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.commandTimeout)
}

// BuildConfigScript wraps configuration lines in the IOS configuration-mode
// entry and exit commands.
func BuildConfigScript(lines []string) string {
	var b strings.Builder
	b.WriteString("configure terminal\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("end\n")
	b.WriteString("exit\n")
	return b.String()
}

// RejectedLine returns the first IOS error marker in shell output, or "".
func RejectedLine(output string) string {
	for _, line := range util.TrimmedLines(output) {
		if strings.HasPrefix(line, "% Invalid") || strings.HasPrefix(line, "% Incomplete") ||
			strings.HasPrefix(line, "% Ambiguous") {
			return line
		}
	}
	return ""
}
