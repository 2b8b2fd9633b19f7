package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutURLReturnsNilClient(t *testing.T) {
	client, err := New(context.Background(), DefaultConfig(""))
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsMalformedURL(t *testing.T) {
	_, err := New(context.Background(), DefaultConfig("http://not-redis"))
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestRunPoolStatsStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Client{}
	done := make(chan error, 1)
	go func() { done <- c.RunPoolStats(ctx, time.Hour) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("RunPoolStats did not return after cancellation")
	}
}
