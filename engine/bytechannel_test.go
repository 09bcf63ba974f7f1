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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperdb/go-driver/hypererr"
)

// fakeSource replays a fixed sequence of payloads, including empty ones
// standing in for skippable status-only messages.
type fakeSource struct {
	payloads [][]byte
	i        int
}

func (f *fakeSource) next(context.Context) ([]byte, bool, error) {
	if f.i >= len(f.payloads) {
		return nil, false, nil
	}
	p := f.payloads[f.i]
	f.i++
	return p, true, nil
}

func TestByteChannelReadAcrossMessages(t *testing.T) {
	src := &fakeSource{payloads: [][]byte{[]byte("ab"), nil, []byte("cde"), []byte("f")}}
	ch := NewByteChannel(context.Background(), src)

	buf := make([]byte, 3)
	n, err := ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf[:n]))

	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "def", string(buf[:n]))

	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, -1, n)
	assert.Equal(t, "def", string(buf), "an end-of-stream read leaves dst untouched")

	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, -1, n)
}

func TestByteChannelStaysOpenAfterEOF(t *testing.T) {
	src := &fakeSource{payloads: [][]byte{[]byte("x")}}
	ch := NewByteChannel(context.Background(), src)
	buf := make([]byte, 8)

	n, err := ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	// still open: reading again is safe and still reports EOS.
	n, err = ch.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, -1, n)
}

func TestByteChannelClosedFailsRead(t *testing.T) {
	src := &fakeSource{}
	ch := NewByteChannel(context.Background(), src)
	require.NoError(t, ch.Close())

	_, err := ch.Read(make([]byte, 4))
	require.Error(t, err)
	assert.True(t, hypererr.Is(err, hypererr.KindChannelClosed))
}
