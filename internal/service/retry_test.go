package service

import (
	"ai-consultation-be/pkg/consultation"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetrierRetriesUpstreamOnly(t *testing.T) {
	retry := NewRetrier(3, time.Millisecond)

	calls := 0
	err := retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: 503", consultation.ErrUpstreamUnavailable)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retry(context.Background(), func() error {
		calls++
		return consultation.ErrMalformedResponse
	})
	assert.ErrorIs(t, err, consultation.ErrMalformedResponse)
	assert.Equal(t, 1, calls)
}

func TestRetrierGivesUpAfterMaxTries(t *testing.T) {
	retry := NewRetrier(2, time.Millisecond)

	calls := 0
	err := retry(context.Background(), func() error {
		calls++
		return consultation.ErrUpstreamUnavailable
	})
	assert.ErrorIs(t, err, consultation.ErrUpstreamUnavailable)
	assert.Equal(t, 2, calls)
}

func TestRetrierStopsOnCancel(t *testing.T) {
	retry := NewRetrier(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := retry(ctx, func() error {
		calls++
		cancel()
		return consultation.ErrUpstreamUnavailable
	})
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, consultation.ErrUpstreamUnavailable))
	assert.Equal(t, 1, calls)
}
