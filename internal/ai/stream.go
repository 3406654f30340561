package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Stream is an incremental diagnosis response. Callers pull text chunks
// with Next and render them as they arrive; Text returns the identical
// reassembled whole for command extraction, so partial rendering and the
// final text can never diverge — both come from the same chunks of one
// network call.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	full    strings.Builder
	usage   TokenUsage
	err     error
	done    bool
	finish  func(TokenUsage)
}

// CompleteStream sends one user prompt and returns the response as a
// stream of text chunks.
func (c *Client) CompleteStream(ctx context.Context, prompt string) (*Stream, error) {
	body, err := c.send(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return &Stream{
		body:    body,
		scanner: sc,
		usage:   TokenUsage{Model: c.model},
		finish:  func(u TokenUsage) { c.lastUsage = &u },
	}, nil
}

// Server-sent event payloads from the Messages API. Only the fields the
// stream consumes are declared.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message struct {
		Model string `json:"model"`
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *apiError `json:"error"`
}

// Next returns the next text chunk. It returns ok=false when the stream
// is exhausted or failed; check Err afterwards.
func (s *Stream) Next() (chunk string, ok bool) {
	if s.done {
		return "", false
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue // unknown event shapes are skipped, not fatal
		}

		switch ev.Type {
		case "message_start":
			s.usage.InputTokens = ev.Message.Usage.InputTokens
			if ev.Message.Model != "" {
				s.usage.Model = ev.Message.Model
			}
		case "content_block_delta":
			if ev.Delta.Text != "" {
				s.full.WriteString(ev.Delta.Text)
				return ev.Delta.Text, true
			}
		case "message_delta":
			if ev.Usage.OutputTokens > 0 {
				s.usage.OutputTokens = ev.Usage.OutputTokens
			}
		case "message_stop":
			s.complete(nil)
			return "", false
		case "error":
			msg := "stream error"
			if ev.Error != nil {
				msg = ev.Error.Message
			}
			s.complete(&DiagnosisError{Err: errors.New(msg)})
			return "", false
		}
	}
	s.complete(s.scanner.Err())
	return "", false
}

func (s *Stream) complete(err error) {
	if s.done {
		return
	}
	s.done = true
	s.err = err
	s.body.Close()
	if err == nil && s.finish != nil {
		s.finish(s.usage)
	}
}

// Text returns the text assembled so far; after Next has returned false
// without error it is the complete response.
func (s *Stream) Text() string { return s.full.String() }

// Usage returns the token usage reported by the stream.
func (s *Stream) Usage() TokenUsage { return s.usage }

// Err returns the terminal error, if any.
func (s *Stream) Err() error { return s.err }

// Close releases the underlying response body. Safe to call twice.
func (s *Stream) Close() error {
	if !s.done {
		s.done = true
		return s.body.Close()
	}
	return nil
}

// Drain consumes the remaining stream and returns the full text, for
// callers that asked for streaming but ended up wanting the batch shape.
func (s *Stream) Drain() (string, error) {
	for {
		if _, ok := s.Next(); !ok {
			break
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.Text(), nil
}
