// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package api serves sensorflow's HTTP surface on a chi router.

# Endpoints

	GET /ws                    live batch and buffer status stream (websocket.Hub)
	GET /health                200 while streaming, 503 otherwise
	GET /metrics               Prometheus exposition
	GET /api/v1/status         buffer, connection, dispatcher and poller snapshot
	GET /api/v1/batches        archived batches: ?from=<seq>&limit=<1..100>
	GET /api/v1/batches/latest most recent archived batch
	GET /api/v1/batches/{seq}  one archived batch

The batch endpoints answer 404 when the archive sink is disabled.

# Middleware

Every request gets an X-Request-ID, panic recovery and request metrics
labelled by chi route pattern. /api/v1 additionally carries CORS
(go-chi/cors, server.allowed_origins), per-IP rate limiting (go-chi/httprate)
and security headers.

# Responses

JSON bodies share one envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","request_id":"..."}}
	{"status":"error","error":{"code":"NOT_FOUND","message":"..."},"metadata":{...}}

/health keeps the envelope and only varies the status code, so load balancers
can read either.
*/
package api
