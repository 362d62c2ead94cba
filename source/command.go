package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/meigma/srcview"
)

// Command decompresses a local archive by piping it through an external
// program such as "gzip -dc". It satisfies srcview.Source.
type Command struct {
	path string
	argv []string
}

// NewCommand creates a Command source. commandLine is split on whitespace;
// the archive is supplied on the program's standard input.
func NewCommand(path, commandLine string) (*Command, error) {
	if path == "" {
		return nil, errors.New("archive path is empty")
	}
	argv := strings.Fields(commandLine)
	if len(argv) == 0 {
		return nil, errors.New("decompressor command is empty")
	}
	return &Command{path: path, argv: argv}, nil
}

// Open starts the decompressor and returns its standard output.
// Closing the reader stops the process.
func (c *Command) Open(ctx context.Context) (io.ReadCloser, error) {
	fh, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	p, err := startPipe(ctx, c.argv, fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	p.extra = fh
	return p, nil
}

// TarCommand extracts members by running an external tar program such as
// "tar -xzOf". The archive path and the member are appended as the final
// two arguments. It satisfies srcview.MemberOpener.
type TarCommand struct {
	path string
	argv []string
}

// NewTarCommand creates a TarCommand for the archive at path.
func NewTarCommand(path, commandLine string) (*TarCommand, error) {
	if path == "" {
		return nil, errors.New("archive path is empty")
	}
	argv := strings.Fields(commandLine)
	if len(argv) == 0 {
		return nil, errors.New("tar command is empty")
	}
	return &TarCommand{path: path, argv: argv}, nil
}

// OpenMember implements srcview.MemberOpener.
//
// The first byte of output is read before returning. A program that fails
// without output is reported as srcview.ErrNotFound; one that exits cleanly
// without output extracted an empty member.
func (t *TarCommand) OpenMember(ctx context.Context, member string) (io.ReadCloser, error) {
	argv := append(append([]string(nil), t.argv...), t.path, member)
	p, err := startPipe(ctx, argv, nil)
	if err != nil {
		return nil, &fs.PathError{Op: "extract", Path: member, Err: fmt.Errorf("%w: %w", srcview.ErrNotFound, err)}
	}
	if _, err := p.br.Peek(1); err != nil {
		p.eof = errors.Is(err, io.EOF)
		waitErr := p.Close()
		if !errors.Is(err, io.EOF) {
			waitErr = errors.Join(err, waitErr)
		}
		if waitErr != nil {
			return nil, &fs.PathError{Op: "extract", Path: member, Err: fmt.Errorf("%w: %w", srcview.ErrNotFound, waitErr)}
		}
		// A clean exit without output is an empty member.
		return io.NopCloser(strings.NewReader("")), nil
	}
	return p, nil
}

// pipe is the standard output of a running process.
type pipe struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	br     *bufio.Reader
	cancel context.CancelFunc
	extra  io.Closer
	eof    bool
	done   bool
}

func startPipe(ctx context.Context, argv []string, stdin io.Reader) (*pipe, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = stdin
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", argv[0], err)
	}
	return &pipe{
		cmd:    cmd,
		stdout: stdout,
		br:     bufio.NewReader(stdout),
		cancel: cancel,
	}, nil
}

func (p *pipe) Read(b []byte) (int, error) {
	n, err := p.br.Read(b)
	if errors.Is(err, io.EOF) {
		p.eof = true
	}
	return n, err
}

// Close reaps the process. It returns the process's exit error only when
// the output was fully drained; a reader that stops early kills the process.
func (p *pipe) Close() error {
	if p.done {
		return nil
	}
	p.done = true

	if !p.eof {
		p.cancel()
	}
	err := p.cmd.Wait()
	p.cancel()
	if p.extra != nil {
		p.extra.Close()
	}
	if !p.eof {
		return nil
	}
	return err
}
