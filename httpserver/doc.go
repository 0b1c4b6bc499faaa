/*
Package httpserver implements the operator status server of the provisioner.

The server never drives tag workflows; it reports on them.

API Endpoints:

	GET /livez                  liveness probe
	GET /readyz                 readiness probe, false while drained
	GET /drain, /undrain        toggle readiness
	GET /status                 listener statistics and the last workflow summary
	GET /api/records/{hash}     lifecycle state of a primary-key hash with its stored record
	GET /metrics                prometheus metrics

Metrics can additionally be served on a dedicated address with MetricsAddr.
*/
package httpserver
