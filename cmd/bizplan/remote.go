package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/bizplan/interview"
	"github.com/sweetpotato0/bizplan/plan"
)

type turnReply struct {
	SessionID   string `json:"session_id"`
	Output      string `json:"output"`
	AllowInput  bool   `json:"allow_input"`
	IsNewOutput bool   `json:"is_new_output"`
	Error       string `json:"error"`
}

// remoteClient talks to a running bizplan server.
type remoteClient struct {
	base         string
	http         *http.Client
	pollInterval time.Duration
}

func newRemoteClient(base string) *remoteClient {
	return &remoteClient{
		base:         strings.TrimRight(base, "/"),
		http:         &http.Client{Timeout: 10 * time.Minute},
		pollInterval: time.Second,
	}
}

func (c *remoteClient) do(ctx context.Context, method, path string, body any) (turnReply, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return turnReply{}, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return turnReply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return turnReply{}, fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	var out turnReply
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return turnReply{}, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	// 409 still carries the current output
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusConflict {
		return out, fmt.Errorf("%s: %s", path, out.Error)
	}
	return out, nil
}

func (c *remoteClient) start(ctx context.Context) (turnReply, error) {
	return c.do(ctx, http.MethodPost, "/start", nil)
}

func (c *remoteClient) step(ctx context.Context, id, input string) (turnReply, error) {
	return c.do(ctx, http.MethodPost, "/step", map[string]string{"session_id": id, "user_input": input})
}

func (c *remoteClient) state(ctx context.Context, id string) (turnReply, error) {
	return c.do(ctx, http.MethodGet, "/state/"+id, nil)
}

// waitForInput polls until the interview asks again or has ended. Each polled
// reply is handed to seen.
func (c *remoteClient) waitForInput(ctx context.Context, id string, last turnReply, seen func(turnReply)) (turnReply, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		if last.AllowInput || finalOutput(last.Output) {
			return last, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
		st, err := c.state(ctx, id)
		if err != nil {
			return last, err
		}
		seen(st)
		last = st
	}
}

// finalOutput reports whether output is one the interview ends with.
func finalOutput(output string) bool {
	if strings.Contains(strings.ToLower(output), "your complete business plan") {
		return true
	}
	switch output {
	case interview.ExitOutput, interview.TimeoutOutput, plan.FailedMessage:
		return true
	}
	return false
}

// runRemoteChat drives one interview on the server, reading answers from in.
// Every output not yet shown is printed, whether it came back from a step or
// from polling.
func runRemoteChat(ctx context.Context, c *remoteClient, in io.Reader, out io.Writer) error {
	reply, err := c.start(ctx)
	if err != nil {
		return err
	}
	id := reply.SessionID
	fmt.Fprintf(out, "%s\n\n", reply.Output)
	printed := reply.Output

	show := func(r turnReply) {
		if r.Output == "" || r.Output == printed {
			return
		}
		fmt.Fprintf(out, "\n%s\n\n", r.Output)
		printed = r.Output
	}

	scanner := bufio.NewScanner(in)
	for {
		reply, err = c.waitForInput(ctx, id, reply, show)
		if err != nil {
			return err
		}
		show(reply)
		if finalOutput(reply.Output) {
			return nil
		}

		fmt.Fprint(out, "> ")
		line := "exit"
		if scanner.Scan() {
			line = scanner.Text()
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		next, err := c.step(ctx, id, line)
		if err != nil {
			return err
		}
		show(next)
		reply = next
	}
}
