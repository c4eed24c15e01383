package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("downstream failed")

func fail() (interface{}, error) { return nil, errDown }
func ok() (interface{}, error)   { return "ok", nil }

func TestBreaker_TripsAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	var transitions []string
	cb := New(2, 1, 10*time.Second,
		WithName("send-api"),
		WithClock(func() time.Time { return now }),
		OnStateChange(func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		}),
	)

	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, Closed, cb.State())

	_, err = cb.Execute(fail)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, Open, cb.State())

	_, err = cb.Execute(ok)
	assert.ErrorIs(t, err, ErrCircuitOpen)

	now = now.Add(11 * time.Second)
	assert.Equal(t, HalfOpen, cb.State())

	res, err := cb.Execute(ok)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, Closed, cb.State())

	assert.Equal(t, []string{
		"send-api:Closed->Open",
		"send-api:Open->Half-Open",
		"send-api:Half-Open->Closed",
	}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(0, 0)
	cb := New(1, 2, time.Second, WithClock(func() time.Time { return now }))

	_, _ = cb.Execute(fail)
	now = now.Add(2 * time.Second)
	_, err := cb.Execute(fail)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, Open, cb.State())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(2, 1, time.Minute)
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(ok)
	_, _ = cb.Execute(fail)
	assert.Equal(t, Closed, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Unknown", State(42).String())
}
