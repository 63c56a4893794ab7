package fe

import "time"

const (
	// RetryStep incremento lineal por reintento.
	RetryStep = 5 * time.Minute
	// MaxRetryDelay tope del backoff.
	MaxRetryDelay = 60 * time.Minute
	// StatusPollInterval espera entre consultas de estado no terminales.
	StatusPollInterval = 5 * time.Minute
)

// RetryDelay espera antes del siguiente intento: min(60, retryCount*5) minutos.
func RetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	d := time.Duration(retryCount) * RetryStep
	if d > MaxRetryDelay {
		return MaxRetryDelay
	}
	return d
}

// NextRetry fecha del siguiente intento tras un fallo transitorio.
func NextRetry(now time.Time, retryCount int) time.Time {
	return now.Add(RetryDelay(retryCount))
}
