// Sensorflow - Multi-axis Sensor Telemetry Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorflow

/*
Package dispatch hands finished batches to persistence and to the live
renderer.

Every batch is dispatched at most once and in production order. The
renderer sees the batch first and independently of persistence. Circuit
breaking is per sink (see sink.WithBreaker), so one dead sink fails fast
without starving the others. A failed write is logged, counted and dropped.
Nothing is re-queued.

In async mode (the default) the poller calls Submit, which enqueues onto a
bounded FIFO drained by the Run worker. A full queue drops the batch. On
shutdown Run keeps draining until the producer calls Finish or the drain
timeout expires; queued batches are written under the drain context, not the
cancelled one. In sync mode Submit writes inline under the caller's context.

	d := dispatch.New(fanout, hub, dispatch.DefaultConfig())
	go d.Run(ctx)
	_ = d.Submit(ctx, batch)
*/
package dispatch
