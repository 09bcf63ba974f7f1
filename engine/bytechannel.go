//
// DISCLAIMER
//
// Copyright 2020 ArangoDB GmbH, Cologne, Germany
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Copyright holder is ArangoDB GmbH, Cologne, Germany
//

package engine

import (
	"context"

	"github.com/hyperdb/go-driver/hypererr"
)

// MessageSource is pulled from by ByteChannel. next() yields a (possibly
// empty) payload slice and true while the source has more messages to
// offer; it yields (nil, false) once exhausted. Implementations are the
// adaptive state machine and the row/chunk-range readers of spec.md
// §4.3/§4.6/§4.7, each single-consumer; AsyncHandle yields no results.
type MessageSource interface {
	next(ctx context.Context) (payload []byte, ok bool, err error)
}

// ByteChannel is the streaming byte channel of spec.md §4.2: a zero-copy
// adaptor from a MessageSource to a byte-oriented read, for consumption by
// an external Arrow IPC record-batch decoder. It never materializes more
// than one message's payload at a time.
type ByteChannel struct {
	ctx    context.Context
	src    MessageSource
	cur    []byte // remainder of the current payload slice, never copied
	closed bool
	eof    bool
}

// NewByteChannel wraps src. The channel starts open.
func NewByteChannel(ctx context.Context, src MessageSource) *ByteChannel {
	return &ByteChannel{ctx: ctx, src: src}
}

// Read fills dst from the current payload, pulling further messages from
// the source as needed, skipping zero-byte and non-payload messages
// without ending the stream (spec.md §4.2/§8 "message skipping"). It
// returns the number of bytes written, or -1 only once the source is
// exhausted and no bytes were transferred this call. The channel remains
// open after end-of-stream; only Close() makes further reads fail.
func (c *ByteChannel) Read(dst []byte) (int, error) {
	if c.closed {
		return 0, hypererr.New(hypererr.KindChannelClosed, hypererr.SQLStateMisc, "byte channel is closed")
	}
	if len(dst) == 0 {
		return 0, nil
	}

	total := 0
	for total < len(dst) {
		if len(c.cur) == 0 {
			if c.eof {
				break
			}
			payload, ok, err := c.src.next(c.ctx)
			if err != nil {
				return total, err
			}
			if !ok {
				c.eof = true
				break
			}
			c.cur = payload
			continue // loop back around; zero-length payloads fall through here too
		}
		n := copy(dst[total:], c.cur)
		c.cur = c.cur[n:]
		total += n
	}

	if total == 0 && c.eof {
		return -1, nil
	}
	return total, nil
}

// Close transitions the channel to closed; subsequent Read calls fail
// with ChannelClosed (spec.md §4.2).
func (c *ByteChannel) Close() error {
	c.closed = true
	return nil
}
