package session

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
)

// launcher abstracts fetcher subprocess startup so the coordinator's state
// machine can be exercised with scripted processes.
type launcher interface {
	// Start launches the command and begins streaming its output lines to
	// onLine. onLine delivery is serialized across stdout and stderr.
	Start(ctx context.Context, name string, args []string, onLine func(string)) (process, error)
}

// process is a running fetcher subprocess
type process interface {
	// Wait blocks until exit and returns the exit code. A non-zero exit is
	// not an error; err is reserved for wait failures.
	Wait() (int, error)

	// Terminate asks the process to stop gracefully
	Terminate() error

	// Kill stops the process immediately
	Kill() error
}

// execLauncher is the exec.Command-backed default
type execLauncher struct{}

type execProcess struct {
	cmd *exec.Cmd

	lineMutex sync.Mutex
	readers   sync.WaitGroup
}

func (execLauncher) Start(ctx context.Context, name string, args []string, onLine func(string)) (process, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd}
	p.readers.Add(2)
	go p.scan(stdout, onLine)
	go p.scan(stderr, onLine)
	return p, nil
}

// scan delivers subprocess output line by line. Progress updates arrive
// carriage-return separated when the fetcher rewrites its status line, so
// the scanner splits on either terminator.
func (p *execProcess) scan(r io.Reader, onLine func(string)) {
	defer p.readers.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		line := scanner.Text()
		p.lineMutex.Lock()
		onLine(line)
		p.lineMutex.Unlock()
	}
}

func (p *execProcess) Wait() (int, error) {
	p.readers.Wait()
	if err := p.cmd.Wait(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

func (p *execProcess) Terminate() error {
	return p.cmd.Process.Signal(os.Interrupt)
}

func (p *execProcess) Kill() error {
	return p.cmd.Process.Kill()
}

// splitByNewlineOrCR is a bufio.SplitFunc treating \n and \r as line ends
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
