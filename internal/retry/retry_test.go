package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keeper/internal/venue"
)

func rateLimitErr() error {
	return &venue.APIError{Venue: "spot", StatusCode: 429, Body: "Too Many Requests"}
}

func recordingPolicy(delays *[]time.Duration) Policy {
	return Policy{MaxAttempts: 3, InitialDelay: 100 * time.Millisecond}.
		WithSleep(func(ctx context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		})
}

func TestDoRetriesRateLimitThenSucceeds(t *testing.T) {
	var delays []time.Duration
	calls := 0
	out, err := Do(context.Background(), "order", recordingPolicy(&delays), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", rateLimitErr()
		}
		return "filled", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "filled", out)
	assert.Equal(t, 3, calls)
	require.Len(t, delays, 2)
	assert.Greater(t, delays[1], delays[0], "delays must strictly increase")
	assert.Equal(t, 100*time.Millisecond, delays[0])
	assert.Equal(t, 200*time.Millisecond, delays[1])
}

func TestDoExhaustedPreservesOriginalError(t *testing.T) {
	var delays []time.Duration
	calls := 0
	_, err := Do(context.Background(), "order", recordingPolicy(&delays), func(ctx context.Context) (int, error) {
		calls++
		return 0, rateLimitErr()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	var apiErr *venue.APIError
	assert.ErrorAs(t, err, &apiErr, "original error must survive wrapping")
	assert.Equal(t, 429, apiErr.StatusCode)
}

func TestDoFatalPropagatesImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), "order", Policy{MaxAttempts: 5}, func(ctx context.Context) (int, error) {
		calls++
		return 0, venue.ErrBlocked
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, venue.ErrBlocked)
	assert.Equal(t, 1, calls, "venue-incompatible errors must not be retried")
}

func TestDoUnknownRetriedExactlyOnce(t *testing.T) {
	var delays []time.Duration
	calls := 0
	_, err := Do(context.Background(), "order", recordingPolicy(&delays), func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("something odd happened")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls, "unclassified errors get one extra attempt")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"http 429", &venue.APIError{StatusCode: 429, Body: "slow down"}, ClassRateLimited},
		{"too many requests text", errors.New("Too Many Requests"), ClassRateLimited},
		{"rate limit text in body", &venue.APIError{StatusCode: 503, Body: "rate limit hit"}, ClassRateLimited},
		{"malformed body without status", &venue.APIError{Body: `{"message":"oops"}`}, ClassRateLimited},
		{"body with status field", &venue.APIError{Body: `{"status":400,"message":"bad size"}`}, ClassUnknown},
		{"http 400", &venue.APIError{StatusCode: 400, Body: "bad order"}, ClassFatal},
		{"venue blocked", venue.ErrBlocked, ClassFatal},
		{"context cancelled", context.Canceled, ClassFatal},
		{"plain error", errors.New("boom"), ClassUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}
