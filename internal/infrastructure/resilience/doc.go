/*
Package resilience guards calls to remote sources with a circuit breaker.

The HTTP lower layer fetches file bodies lazily from a web root. When that
root goes away every read would otherwise wait out the client timeout and
its retries. The breaker counts consecutive failures and, past a
threshold, fails reads immediately with ErrCircuitOpen until a cooldown
elapses. After the cooldown a single trial call is let through: success closes
the circuit, failure opens it again.

# Usage

	breaker := resilience.New("webroot", resilience.Settings{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
	})

	err := breaker.Do(func() error {
		return fetch(ctx, path)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		// the source is considered down
	}

Errors for which Settings.IsFailure returns false (a missing file, say)
pass through without counting against the source.
*/
package resilience
