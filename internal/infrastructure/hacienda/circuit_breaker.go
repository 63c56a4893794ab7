package hacienda

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen el API de Hacienda falló repetidamente; se corta antes de llamar.
var ErrCircuitOpen = errors.New("hacienda: circuito abierto, API no disponible")

// BreakerState estado del circuito.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // operación normal
	BreakerOpen                         // falla rápido
	BreakerHalfOpen                     // una llamada de prueba
)

// CircuitBreaker corta las llamadas tras maxFailures fallos seguidos y vuelve a probar
// pasado cooldown. Solo cuentan los fallos transitorios (red, 5xx); un rechazo de
// validación significa que el API responde.
type CircuitBreaker struct {
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

// NewCircuitBreaker valores por defecto: 5 fallos, 30 s.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{maxFailures: maxFailures, cooldown: cooldown, now: time.Now}
}

// Execute corre fn si el circuito lo permite. countable decide si el error abre el circuito.
func (cb *CircuitBreaker) Execute(fn func() error, countable func(error) bool) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err != nil && countable(err))
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case BreakerOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.probing = true
		return true
	case BreakerHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	}
	return true
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
	if !failed {
		cb.state = BreakerClosed
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.state == BreakerHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = BreakerOpen
		cb.openedAt = cb.now()
	}
}

// State estado actual.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
