package stream_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-tts/pkg/stream"
)

func TestSinkBuffered(t *testing.T) {
	s := stream.New(nil)
	require.NoError(t, s.Push([]byte("ab")))
	require.NoError(t, s.Push(nil))
	require.NoError(t, s.Push([]byte("cd")))
	s.End()

	res := s.Result()
	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, stream.StatusOK, res.Status)
	assert.Equal(t, []byte("abcd"), res.Audio)
	assert.Equal(t, int64(4), s.Written())
}

func TestSinkEmptyEndResolvesNil(t *testing.T) {
	s := stream.New(nil)
	s.End()
	res := s.Result()
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Audio)
}

func TestSinkIdempotentCompletion(t *testing.T) {
	t.Run("end twice", func(t *testing.T) {
		s := stream.New(nil)
		_ = s.Push([]byte("x"))
		s.End()
		s.End()
		assert.Equal(t, []byte("x"), s.Result().Audio)
	})

	t.Run("end after error keeps the error", func(t *testing.T) {
		s := stream.New(nil)
		_ = s.Push([]byte("x"))
		cause := errors.New("boom")
		s.Error(cause, "test")
		s.End()
		s.Error(errors.New("second"), "test")

		res := s.Result()
		assert.ErrorIs(t, res.Err, cause)
		assert.Contains(t, res.Err.Error(), "test: boom")
		assert.Equal(t, stream.StatusErrored, res.Status)
		assert.False(t, res.OK())
		assert.Nil(t, res.Audio)
	})

	t.Run("push after end is ignored", func(t *testing.T) {
		s := stream.New(nil)
		s.End()
		assert.ErrorIs(t, s.Push([]byte("late")), stream.ErrSinkClosed)
		assert.Nil(t, s.Result().Audio)
		assert.True(t, s.Closed())
	})
}

func TestSinkDestination(t *testing.T) {
	pr, pw := io.Pipe()
	s := stream.New(pw)

	got := make(chan []byte, 1)
	go func() {
		b, _ := io.ReadAll(pr)
		got <- b
	}()

	require.NoError(t, s.Push([]byte("hello ")))
	require.NoError(t, s.Push([]byte("world")))
	s.End()

	assert.Equal(t, []byte("hello world"), <-got)
	res := s.Result()
	assert.NoError(t, res.Err)
	assert.Nil(t, res.Audio)
}

func TestSinkDestinationError(t *testing.T) {
	pr, pw := io.Pipe()
	s := stream.New(pw)

	readErr := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(pr)
		readErr <- err
	}()

	cause := errors.New("upstream failed")
	s.Error(cause, "session")

	assert.ErrorIs(t, <-readErr, cause)
	assert.ErrorIs(t, s.Result().Err, cause)
}

func TestSinkPushBlocksUntilRead(t *testing.T) {
	pr, pw := io.Pipe()
	s := stream.New(pw)

	pushed := make(chan error, 1)
	go func() { pushed <- s.Push([]byte("data")) }()

	select {
	case <-pushed:
		t.Fatal("push returned before the reader consumed data")
	case <-time.After(50 * time.Millisecond):
	}

	buf := make([]byte, 4)
	_, err := io.ReadFull(pr, buf)
	require.NoError(t, err)
	assert.NoError(t, <-pushed)
	assert.Equal(t, "data", string(buf))
}

func TestSinkErrorUnblocksPush(t *testing.T) {
	_, pw := io.Pipe()
	s := stream.New(pw)

	pushed := make(chan error, 1)
	go func() { pushed <- s.Push([]byte("stuck")) }()
	time.Sleep(20 * time.Millisecond)

	s.Error(errors.New("aborted"), "abort")
	select {
	case err := <-pushed:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("push stayed blocked after error")
	}
}

func TestSinkReaderGone(t *testing.T) {
	pr, pw := io.Pipe()
	s := stream.New(pw)
	require.NoError(t, pr.Close())

	err := s.Push([]byte("x"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorIs(t, s.Result().Err, io.ErrClosedPipe)
}

func TestSinkWait(t *testing.T) {
	s := stream.New(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	s.End()
	res, err := s.Wait(context.Background())
	require.NoError(t, err)
	assert.NoError(t, res.Err)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
