// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Returned by a MessageHandler to end the repl after its answer got written
var ErrStop = errors.New("repl stopped")

var ErrClosed = errors.New("closed")

type MessageHandler func(string, *Repl) (string, error)

type Repl struct {
	Input   io.ReadCloser
	Output  io.WriteCloser
	scanner *bufio.Scanner
	writer  *bufio.Writer
	lock    sync.Mutex
}

// Creates a new repl
// If no input is given, stdin will be used
// If no output is given, stdout will be used
// Note: The given reader and writer will be closed if the repl is started and then stops.
// Stdin and stdout themselves are never closed, only cut off from the repl
func NewRepl(in io.Reader, out io.Writer) *Repl {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	r := &Repl{
		Input:  asReadCloser(in),
		Output: asWriteCloser(out),
	}
	r.scanner = bufio.NewScanner(r.Input)
	r.writer = bufio.NewWriter(r.Output)
	return r
}

// Starts the repl
// Blocks execution until the repl closes
// All input will be passed to the handler func, empty lines are skipped
// If it receives an error from the message handler or during writing, it calls Close
func (r *Repl) Run(onMessage MessageHandler) error {
	for r.scanner.Scan() {
		newMessage := strings.TrimSpace(r.scanner.Text())
		if newMessage == "" {
			continue
		}
		res, err := onMessage(newMessage, r)
		stop := errors.Is(err, ErrStop)
		if err != nil && !stop {
			r.Close()
			return fmt.Errorf("message handler errored out on message \"%s\": %w", newMessage, err)
		}
		if werr := r.Println(res); werr != nil {
			r.Close()
			return werr
		}
		if stop {
			r.Close()
			return nil
		}
	}
	return r.scanner.Err()
}

// Println writes one line of output. Safe to call from other goroutines while Run is going
func (r *Repl) Println(line string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, err := r.writer.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write result \"%s\": %w", line, err)
	}
	if err := r.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	return nil
}

// Close stops the repl if it was still running
// This will also close the reader and writer
func (r *Repl) Close() {
	r.Input.Close()
	r.Output.Close()
}

// Stdin and stdout get wrapped so that closing the repl only closes the wrappers

type readCloser struct {
	isClosed bool
	wrapped  io.Reader
}

func asReadCloser(in io.Reader) io.ReadCloser {
	if rc, ok := in.(io.ReadCloser); ok && in != os.Stdin {
		return rc
	}
	return &readCloser{wrapped: in}
}

func (r *readCloser) Close() error {
	r.isClosed = true
	return nil
}

func (r *readCloser) Read(p []byte) (n int, err error) {
	if r.isClosed {
		return 0, ErrClosed
	}
	return r.wrapped.Read(p)
}

type writeCloser struct {
	isClosed bool
	wrapped  io.Writer
}

func asWriteCloser(out io.Writer) io.WriteCloser {
	if wc, ok := out.(io.WriteCloser); ok && out != os.Stdout && out != os.Stderr {
		return wc
	}
	return &writeCloser{wrapped: out}
}

func (w *writeCloser) Close() error {
	w.isClosed = true
	return nil
}

func (w *writeCloser) Write(p []byte) (n int, err error) {
	if w.isClosed {
		return 0, ErrClosed
	}
	return w.wrapped.Write(p)
}
