package hacienda

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	boom := errors.New("boom")
	always := func(error) bool { return true }
	fail := func() error { return boom }
	ok := func() error { return nil }

	assert.ErrorIs(t, cb.Execute(fail, always), boom)
	assert.Equal(t, BreakerClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(fail, always), boom)
	assert.Equal(t, BreakerOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ok, always), ErrCircuitOpen)

	now = now.Add(time.Minute)
	assert.ErrorIs(t, cb.Execute(fail, always), boom, "prueba en half-open")
	assert.Equal(t, BreakerOpen, cb.State())

	now = now.Add(time.Minute)
	assert.NoError(t, cb.Execute(ok, always))
	assert.Equal(t, BreakerClosed, cb.State())
}

func TestCircuitBreaker_ErroresNoContables(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	rejected := errors.New("rechazo de validación")
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return rejected }, func(error) bool { return false }), rejected)
	}
	assert.Equal(t, BreakerClosed, cb.State())
}
