// Package lspclient drives one LSP server child process over stdio
// JSON-RPC, exposing a single channel of classified messages
// (responses to our own requests, server notifications, and
// server-initiated requests) for a coordinator's select loop to
// consume.
package lspclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"sync/atomic"

	"github.com/sourcegraph/jsonrpc2"
)

// Config is the subset of a configured LSP client the coordinator
// consumes: executable/args/env to spawn the child, a files regex
// deciding which editor windows this client owns, and the put-time
// formatting/action behavior (spec.md §4.7, §6).
type Config struct {
	Name            string
	Executable      string
	Args            []string
	Env             map[string]string
	Files            *regexp.Regexp
	RootURI          string
	WorkspaceFolders []string
	Options          map[string]interface{}
	ActionsOnPut    []string
	FormatOnPut     bool
}

// Client is one spawned LSP server and its JSON-RPC connection.
type Client struct {
	Name   string
	Files  *regexp.Regexp
	Config Config

	cmd    *exec.Cmd
	conn   *jsonrpc2.Conn
	nextID atomic.Int64

	messages chan Message
}

// childStream combines a child process's stdin/stdout into the
// io.ReadWriteCloser jsonrpc2's buffered stream wraps, closing stdin
// first so the child sees EOF.
type childStream struct {
	io.ReadCloser
	io.WriteCloser
	cmd *exec.Cmd
}

func (s childStream) Close() error {
	if err := s.WriteCloser.Close(); err != nil {
		return err
	}
	return s.ReadCloser.Close()
}

// NewClient spawns the configured child process and establishes the
// JSON-RPC connection, framed by jsonrpc2's Content-Length codec
// (VSCodeObjectCodec implements the LSP wire envelope used throughout
// §4.6/§6).
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	exe := cfg.Executable
	if exe == "" {
		exe = cfg.Name
	}
	cmd := exec.Command(exe, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lspclient: %s: stdin pipe: %w", cfg.Name, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lspclient: %s: stdout pipe: %w", cfg.Name, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lspclient: %s: start: %w", cfg.Name, err)
	}

	c := &Client{
		Name:     cfg.Name,
		Files:    cfg.Files,
		Config:   cfg,
		cmd:      cmd,
		messages: make(chan Message, 64),
	}

	stream := jsonrpc2.NewBufferedStream(childStream{stdout, stdin, cmd}, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, &handler{messages: c.messages})

	return c, nil
}

// Messages returns the channel of classified incoming traffic: our own
// requests' responses/errors, server notifications, and
// server-initiated requests.
func (c *Client) Messages() <-chan Message {
	return c.messages
}

// Send allocates a locally-tracked request id, issues the call
// asynchronously, and reports the result on Messages() when it
// completes so the caller's select loop never blocks on a single slow
// server. result must be a pointer to the response type Send should
// decode into; it is delivered back inside the Message once Call
// returns.
func (c *Client) Send(ctx context.Context, method string, params, result interface{}) int64 {
	id := c.nextID.Add(1)
	go func() {
		err := c.conn.Call(ctx, method, params, result)
		c.messages <- Message{Kind: KindResponse, ID: id, Method: method, Result: result, Err: err}
	}()
	return id
}

// Notify sends a one-way notification (no id, no response expected).
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	return c.conn.Notify(ctx, method, params)
}

// Close kills the child process, matching the original's Drop
// behavior (best-effort, the process is not given a chance to clean
// up).
func (c *Client) Close() error {
	_ = c.conn.Close()
	if c.cmd.Process != nil {
		return c.cmd.Process.Kill()
	}
	return nil
}
