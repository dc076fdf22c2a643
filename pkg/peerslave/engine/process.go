package engine

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"

	"github.com/jabolina/peerslave/pkg/peerslave/types"
)

// TemplateData is the set of values a launch-command template may
// reference when rendering a process command line from a text/template.
type TemplateData struct {
	HostID     uint64
	Name       string
	Port       uint16
	SocketPath string
}

// RenderCommand renders tmpl (Go text/template syntax, with Sprig's
// function set available) against data, returning the resulting command
// line.
func RenderCommand(tmpl string, data TemplateData) (string, error) {
	t, err := template.New("engine-command").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "engine: failed parsing command template")
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "engine: failed rendering command template")
	}
	return buf.String(), nil
}

// Process drives a real out-of-process interpreter launched with
// os/exec, speaking a minimal line-oriented protocol over its stdin and
// stdout: "PUT name\n<len>\n<bytes>\n", "EVAL expr\n" and "GET name\n"
// requests, each answered with "OK\n" or "ERR <message>\n", a GET
// instead replying "OK <len>\n" followed by exactly <len> payload bytes.
//
// The wire format of this child-process protocol is this module's own
// invention: the Engine contract treats the process purely as an
// external collaborator behind the five-operation interface and says
// nothing about how a real implementation talks to it.
type Process struct {
	commandLine string
	startupWait time.Duration
	log         types.Logger

	cmd    *exec.Cmd
	stdin  *bufio.Writer
	stdout *bufio.Reader
}

// NewProcessEngine builds a Process engine that will launch commandLine
// (already rendered, see RenderCommand) on Open.
func NewProcessEngine(commandLine string, startupWait time.Duration, log types.Logger) *Process {
	return &Process{commandLine: commandLine, startupWait: startupWait, log: log}
}

func (p *Process) Open() error {
	fields := strings.Fields(p.commandLine)
	if len(fields) == 0 {
		return errors.New("engine: empty command line")
	}
	cmd := exec.Command(fields[0], fields[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.Wrap(err, "engine: failed opening stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.Wrap(err, "engine: failed opening stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(types.ErrEngineStart, err.Error())
	}
	p.cmd = cmd
	p.stdin = bufio.NewWriter(stdin)
	p.stdout = bufio.NewReader(stdout)

	if p.startupWait > 0 {
		if _, err := p.readStatusLine(p.startupWait); err != nil {
			_ = p.Close()
			return errors.Wrap(types.ErrEngineStart, err.Error())
		}
	}
	return nil
}

// readStatusLine reads one status line from the engine's stdout. A
// timeout of zero blocks indefinitely: the slave loop's injected
// timallow option, not this driver, is what bounds an Eval call.
func (p *Process) readStatusLine(timeout time.Duration) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.stdout.ReadString('\n')
		ch <- result{line, err}
	}()

	if timeout <= 0 {
		res := <-ch
		return statusOrErr(res.line, res.err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return statusOrErr(res.line, res.err)
	}
}

func statusOrErr(rawLine string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	line := strings.TrimRight(rawLine, "\r\n")
	if strings.HasPrefix(line, "ERR") {
		return line, errors.New(line)
	}
	return line, nil
}

func (p *Process) Put(name string, blob []byte) error {
	if p.cmd == nil {
		return ErrNotOpen
	}
	if _, err := fmt.Fprintf(p.stdin, "PUT %s\n%d\n", name, len(blob)); err != nil {
		return errors.Wrap(err, "engine: failed writing PUT header")
	}
	if _, err := p.stdin.Write(blob); err != nil {
		return errors.Wrap(err, "engine: failed writing PUT payload")
	}
	if _, err := p.stdin.WriteString("\n"); err != nil {
		return err
	}
	if err := p.stdin.Flush(); err != nil {
		return errors.Wrap(err, "engine: failed flushing PUT")
	}
	_, err := p.readStatusLine(30 * time.Second)
	return err
}

func (p *Process) Eval(expr string) error {
	if p.cmd == nil {
		return ErrNotOpen
	}
	if _, err := fmt.Fprintf(p.stdin, "EVAL %s\n", expr); err != nil {
		return errors.Wrap(err, "engine: failed writing EVAL")
	}
	if err := p.stdin.Flush(); err != nil {
		return errors.Wrap(err, "engine: failed flushing EVAL")
	}
	_, err := p.readStatusLine(0)
	if err != nil {
		return errors.Wrap(types.ErrEngineEval, err.Error())
	}
	return nil
}

func (p *Process) Get(name string) ([]byte, error) {
	if p.cmd == nil {
		return nil, ErrNotOpen
	}
	if _, err := fmt.Fprintf(p.stdin, "GET %s\n", name); err != nil {
		return nil, errors.Wrap(err, "engine: failed writing GET")
	}
	if err := p.stdin.Flush(); err != nil {
		return nil, errors.Wrap(err, "engine: failed flushing GET")
	}
	status, err := p.readStatusLine(30 * time.Second)
	if err != nil {
		return nil, err
	}
	parts := strings.SplitN(status, " ", 2)
	if len(parts) != 2 {
		return nil, errors.New("engine: malformed GET length header")
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errors.Wrap(err, "engine: malformed GET length")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.stdout, buf); err != nil {
		return nil, errors.Wrap(err, "engine: failed reading GET payload")
	}
	return buf, nil
}

func (p *Process) Close() error {
	if p.cmd == nil {
		return nil
	}
	_ = p.stdin.Flush()
	cmd := p.cmd
	p.cmd = nil
	if cmd.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		<-done
		return nil
	case err := <-done:
		return err
	}
}

var _ Engine = (*Process)(nil)
