/*
Package resilience provides the circuit breaker guarding collector delivery.

# Overview

A collector that is down or overloaded makes every report call wait for a
full HTTP timeout. The breaker counts delivery failures per endpoint and,
once tripped, rejects sends immediately until a cool-down has passed.

Which errors count is up to Settings.IsFailure. The reporter's HTTP
transport ignores rejected payloads (4xx other than 408 and 429), since the
collector answering at all means it is healthy.

# Usage

	breaker := resilience.New("http://zipkin:9411/api/v2/spans", resilience.Settings{
		OpenTimeout: 30 * time.Second,
		Trip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Execute(func() error {
		return send(payload)
	})

Allow splits Execute in two for callers that classify the outcome later:

	done, err := breaker.Allow()
	if err != nil {
		return err
	}
	done(send(payload))

# States

	Closed --[trip]-> Open --[timeout]-> Half-Open --[probes succeed]-> Closed
	                                         |
	                                   [failure]
	                                         |
	                                         v
	                                        Open
*/
package resilience
