// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// =============================================================================
// DECODER CONSTANTS
// =============================================================================

// dataMarker prefixes every data frame on the wire.
const dataMarker = "data:"

// doneSentinel is the literal end-of-stream value. It is consumed by
// the decoder and never surfaced to callers.
const doneSentinel = "[DONE]"

// ErrStreamUnavailable is returned when the response cannot be decoded
// at all (non-OK status or missing body). Callers must treat this as
// "stream unavailable", not as an empty stream.
var ErrStreamUnavailable = errors.New("chat stream unavailable")

// =============================================================================
// FRAME DECODER
// =============================================================================

// FrameDecoder turns a chunked HTTP response into discrete payload
// strings. A payload that parses as a JSON array is expanded into one
// item per element; a payload that is not valid JSON is yielded as raw
// text.
type FrameDecoder struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending []string // queued items from an expanded array frame
	done    bool
}

// NewFrameDecoder validates the response and wraps its body. A non-OK
// status or nil body fails immediately with ErrStreamUnavailable; no
// items will ever be yielded from such a response.
func NewFrameDecoder(resp *http.Response) (*FrameDecoder, error) {
	if resp == nil || resp.Body == nil || resp.StatusCode != http.StatusOK {
		return nil, ErrStreamUnavailable
	}
	return &FrameDecoder{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
	}, nil
}

// NewFrameDecoderFromReader wraps a raw reader. Used by tests and by
// callers that have already validated the transport.
func NewFrameDecoderFromReader(r io.Reader) *FrameDecoder {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	return &FrameDecoder{
		body:   rc,
		reader: bufio.NewReader(rc),
	}
}

// Next returns the next decoded payload. It blocks until a full line is
// available, the stream ends (io.EOF), or the context is cancelled.
// The [DONE] sentinel is consumed and reported as io.EOF.
func (d *FrameDecoder) Next(ctx context.Context) (string, error) {
	for {
		if len(d.pending) > 0 {
			item := d.pending[0]
			d.pending = d.pending[1:]
			return item, nil
		}
		if d.done {
			return "", io.EOF
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		line, err := d.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				d.done = true
				// A trailing partial line is still a frame.
				if payload, ok := d.decodeLine(line); ok {
					return payload, nil
				}
				return "", io.EOF
			}
			return "", err
		}

		if payload, ok := d.decodeLine(line); ok {
			return payload, nil
		}
	}
}

// Close releases the underlying body. Safe to call more than once.
func (d *FrameDecoder) Close() error {
	d.done = true
	return d.body.Close()
}

// decodeLine strips the wire marker and expands batched frames.
// Returns ("", false) when the line carries nothing to yield, which
// includes blank keepalive lines, the end sentinel, and lines without
// the data marker.
func (d *FrameDecoder) decodeLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", false
	}

	if !strings.HasPrefix(line, dataMarker) {
		// SSE comments (leading ':') and field lines we do not use.
		return "", false
	}
	payload := strings.TrimLeft(line[len(dataMarker):], " \t")

	if payload == "" {
		return "", false
	}
	if payload == doneSentinel {
		d.done = true
		return "", false
	}

	// Servers may batch multiple logical events into one physical
	// frame as a JSON array; expand element-wise.
	if strings.HasPrefix(payload, "[") {
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(payload), &elems); err == nil {
			for _, e := range elems {
				d.pending = append(d.pending, string(e))
			}
			if len(d.pending) > 0 {
				item := d.pending[0]
				d.pending = d.pending[1:]
				return item, true
			}
			return "", false
		}
	}

	return payload, true
}

// =============================================================================
// DELTA EXTRACTION
// =============================================================================

// ExtractDelta unwraps a decoded payload into its text fragment.
// Backend frames carry the delta under one of several keys depending on
// endpoint generation; this is the one place those shapes are probed.
// A payload that is not a JSON object is returned verbatim, so an
// unstructured stream still renders.
func ExtractDelta(payload string) string {
	var frame struct {
		TextResponse *string `json:"textResponse"`
		Text         *string `json:"text"`
		Delta        *string `json:"delta"`
		Content      *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return payload
	}
	switch {
	case frame.TextResponse != nil:
		return *frame.TextResponse
	case frame.Text != nil:
		return *frame.Text
	case frame.Delta != nil:
		return *frame.Delta
	case frame.Content != nil:
		return *frame.Content
	}
	return ""
}
