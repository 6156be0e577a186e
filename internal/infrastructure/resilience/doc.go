/*
Package resilience provides the circuit breaker used by the pipe clients.

A breaker counts consecutive failures of a remote call. Once Threshold is
reached it opens and fails fast with ErrOpen for Cooldown, then lets
Probes trial calls through. Enough successes close it; any failure
reopens it.

	Closed --[Threshold failures]--> Open --[Cooldown]--> Half-Open
	   ^                                                     |
	   +------------------[Probes successes]-----------------+

IsFailure separates transport trouble from answers the server gave on
purpose, so a "pipe not found" reply never trips the breaker.

	breaker := resilience.New("pipefs", resilience.Settings{
		Threshold: 5,
		Cooldown:  10 * time.Second,
		IsFailure: client.IsTransportError,
	})
	info, err := resilience.Call(breaker, func() (*Info, error) {
		return api.Stat(ctx, name)
	})
*/
package resilience
