package content

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ssbc/go-luigi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out")
	}
}

func TestSliceSource(t *testing.T) {
	t.Parallel()

	a, b := NewChunk([]byte("a"), false, nil), Last([]byte("b"))
	src := NewSliceSource(a, b)

	var fired int
	src.Demand(func() { fired++ })
	assert.Equal(t, 1, fired)

	assert.Same(t, a, src.Read())
	assert.Same(t, b, src.Read())
	assert.Nil(t, src.Read())
	assert.Equal(t, 3, src.Reads())

	src.Demand(func() { fired++ })
	assert.Equal(t, 1, fired, "exhausted source must not wake")
	assert.Equal(t, 2, src.Demands())
}

func TestSliceSource_FailReleasesUnread(t *testing.T) {
	t.Parallel()

	var released int
	src := NewSliceSource(NewChunk([]byte("a"), false, func() { released++ }), EOF)
	boom := errors.New("boom")
	src.Fail(boom)

	assert.Equal(t, 1, released)
	assert.Nil(t, src.Read())
	assert.Equal(t, []error{boom}, src.Failures())
}

func TestPipe_DemandFiresOnOffer(t *testing.T) {
	t.Parallel()

	p := NewPipe()
	assert.Nil(t, p.Read())

	var fired int
	p.Demand(func() { fired++ })
	assert.Equal(t, 0, fired)

	c := NewChunk([]byte("x"), false, nil)
	require.NoError(t, p.Offer(c))
	assert.Equal(t, 1, fired)

	// one-shot
	require.NoError(t, p.Offer(NewChunk([]byte("y"), false, nil)))
	assert.Equal(t, 1, fired)

	assert.Same(t, c, p.Read())
	p.Demand(func() { fired++ })
	assert.Equal(t, 2, fired, "queued chunk wakes inline")
}

func TestPipe_CloseAndFail(t *testing.T) {
	t.Parallel()

	p := NewPipe()
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Offer(NewChunk([]byte("late"), false, nil)), ErrPipeClosed)
	assert.Same(t, EOF, p.Read())

	q := NewPipe()
	boom := errors.New("consumer gone")
	q.Fail(boom)
	q.Fail(errors.New("second"))

	var released bool
	err := q.Offer(NewChunk([]byte("x"), false, func() { released = true }))
	assert.Same(t, boom, err)
	assert.True(t, released)
	assert.Same(t, boom, q.Err())

	r := NewPipe()
	cause := errors.New("producer broke")
	require.NoError(t, r.CloseWithError(cause))
	c := r.Read()
	require.NotNil(t, c)
	assert.Same(t, cause, c.Err())
}

func TestReaderSource_ReadsInPieces(t *testing.T) {
	t.Parallel()

	src := NewReaderSource(context.Background(), strings.NewReader("hello world"), 4)

	var got bytes.Buffer
	for {
		ready := make(chan struct{})
		src.Demand(func() { close(ready) })
		waitFor(t, ready)

		c := src.Read()
		require.NotNil(t, c)
		require.False(t, c.IsError(), "unexpected error %v", c.Err())
		assert.LessOrEqual(t, c.Len(), 4)
		got.Write(c.Bytes())
		last := c.IsLast()
		c.Release()
		if last {
			break
		}
	}
	assert.Equal(t, "hello world", got.String())
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

type closeRecorder struct {
	io.Reader
	closed atomic.Int32
}

func (c *closeRecorder) Close() error {
	c.closed.Add(1)
	return nil
}

func TestReaderSource_ErrorsAndFail(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk gone")
	src := NewReaderSource(context.Background(), failingReader{boom}, 8)
	ready := make(chan struct{})
	src.Demand(func() { close(ready) })
	waitFor(t, ready)

	c := src.Read()
	require.NotNil(t, c)
	assert.Same(t, boom, c.Err())

	rc := &closeRecorder{Reader: strings.NewReader("data")}
	src = NewReaderSource(context.Background(), rc, 8)
	src.Fail(boom)
	src.Fail(boom)
	assert.Equal(t, int32(1), rc.closed.Load())

	fired := false
	src.Demand(func() { fired = true })
	assert.False(t, fired)
}

type stalledReader struct {
	reads atomic.Int32
}

func (r *stalledReader) Read([]byte) (int, error) {
	r.reads.Add(1)
	return 0, nil
}

func TestReaderSource_GivesUpWithoutProgress(t *testing.T) {
	t.Parallel()

	r := &stalledReader{}
	src := NewReaderSource(context.Background(), r, 8)
	ready := make(chan struct{})
	src.Demand(func() { close(ready) })
	waitFor(t, ready)

	c := src.Read()
	require.NotNil(t, c)
	assert.ErrorIs(t, c.Err(), io.ErrNoProgress)
	assert.False(t, c.IsLast())
	assert.Equal(t, int32(maxEmptyReads), r.reads.Load())
}

func TestLuigiSource(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	lsrc, lsink := luigi.NewPipe(luigi.WithBuffer(4))
	require.NoError(t, lsink.Pour(ctx, []byte("ab")))
	require.NoError(t, lsink.Pour(ctx, "cd"))
	require.NoError(t, lsink.Close())

	src := NewLuigiSource(ctx, lsrc)

	var got []string
	for {
		ready := make(chan struct{})
		src.Demand(func() { close(ready) })
		waitFor(t, ready)

		c := src.Read()
		require.NotNil(t, c)
		require.False(t, c.IsError())
		if c.IsLast() {
			break
		}
		got = append(got, string(c.Bytes()))
		c.Release()
	}
	assert.Equal(t, []string{"ab", "cd"}, got)
}

func TestLuigiSource_UnhandledType(t *testing.T) {
	t.Parallel()

	src := NewLuigiSource(context.Background(), luigi.FuncSource(func(context.Context) (interface{}, error) {
		return 42, nil
	}))

	ready := make(chan struct{})
	src.Demand(func() { close(ready) })
	waitFor(t, ready)

	c := src.Read()
	require.NotNil(t, c)
	require.True(t, c.IsError())
	assert.Contains(t, c.Err().Error(), "unhandled value type int")
}
