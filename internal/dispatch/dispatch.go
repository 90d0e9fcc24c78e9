/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package dispatch is the request dispatcher: it routes a decoded
// envelope by its "type" header, runs the authenticator and sync engine
// against the right user log, applies the error taxonomy, and produces a
// response envelope. It knows nothing about sockets or frames -- that is
// internal/transport's job -- so it is trivially unit-testable and, per
// spec.md §9, parametric over whatever transport hands it an envelope.
package dispatch

import (
	"strconv"
	"time"

	"github.com/gravwell/taskd/internal/auth"
	"github.com/gravwell/taskd/internal/metrics"
	"github.com/gravwell/taskd/internal/status"
	"github.com/gravwell/taskd/internal/sync"
	"github.com/gravwell/taskd/internal/txlog"
	"github.com/gravwell/taskd/internal/wire"
	tasklog "github.com/gravwell/taskd/log"
)

const protocolVersion = "v1"

// Dispatcher ties the protocol surface together: one call per decoded
// request envelope, synchronous, returning the response envelope.
type Dispatcher struct {
	Auth    *auth.Authenticator
	Store   *txlog.Store
	Engine  *sync.Engine
	Metrics *metrics.Metrics
	Logger  *tasklog.Logger
}

// New builds a Dispatcher from its collaborators. Metrics and Logger may
// be nil.
func New(a *auth.Authenticator, store *txlog.Store, engine *sync.Engine, m *metrics.Metrics, lgr *tasklog.Logger) *Dispatcher {
	return &Dispatcher{Auth: a, Store: store, Engine: engine, Metrics: m, Logger: lgr}
}

// Handle processes one request envelope end to end, converting every
// failure mode -- numeric code, descriptive string, or anything else --
// into a response envelope with "code"/"status" headers. It never
// returns an error: a response envelope is always produced.
func (d *Dispatcher) Handle(req wire.Envelope) wire.Envelope {
	started := time.Now()

	resp, err := d.route(req)
	failed := err != nil
	if failed {
		resp = ErrorEnvelope(status.AsError(err))
	}

	if d.Metrics != nil {
		d.Metrics.Observe(len(req.Payload), len(resp.Payload), time.Since(started), failed)
	}
	return resp
}

func (d *Dispatcher) route(req wire.Envelope) (wire.Envelope, error) {
	switch req.Get("type") {
	case "sync":
		return d.handleSync(req)
	case "statistics":
		return d.handleStatistics(req)
	case "":
		return wire.Envelope{}, status.New(status.SyntaxError, "missing required header: type")
	default:
		return wire.Envelope{}, status.New(status.SyntaxError, "unknown request type: "+req.Get("type"))
	}
}

func (d *Dispatcher) handleSync(req wire.Envelope) (wire.Envelope, error) {
	if req.Get("protocol") != protocolVersion {
		return wire.Envelope{}, status.New(status.SyntaxError, "required protocol version: "+protocolVersion)
	}

	org, user, key := req.Get("org"), req.Get("user"), req.Get("key")
	if org == "" || user == "" {
		return wire.Envelope{}, status.New(status.SyntaxError, "missing required header: org/user")
	}

	if err := d.Auth.Authenticate(org, user, key); err != nil {
		return wire.Envelope{}, err
	}

	unlock, err := d.Store.Lock(org, user)
	if err != nil {
		return wire.Envelope{}, status.New(status.SyntaxError, "could not lock user log")
	}
	defer unlock()

	lines, err := d.Store.ReadAll(org, user)
	if err != nil {
		return wire.Envelope{}, status.New(status.SyntaxError, "could not read user log")
	}

	result, err := d.Engine.Sync(lines, req.Payload)
	if err != nil {
		return wire.Envelope{}, err
	}

	if len(result.Append) > 0 {
		if err := d.Store.Append(org, user, result.Append); err != nil {
			// Per spec.md §7, I/O errors on the log are generic 500 text;
			// the lock is about to be released with nothing torn because
			// Append either wrote every line or none.
			return wire.Envelope{}, status.New(status.SyntaxError, "could not append to user log")
		}
	}

	resp := wire.NewEnvelope()
	resp.Set("code", strconv.Itoa(int(result.Code)))
	resp.Set("status", result.Code.Text())
	resp.Payload = result.Payload
	return resp, nil
}

func (d *Dispatcher) handleStatistics(req wire.Envelope) (wire.Envelope, error) {
	resp := wire.NewEnvelope()
	resp.Set("code", strconv.Itoa(int(status.OK)))
	resp.Set("status", status.OK.Text())

	if d.Metrics == nil {
		return resp, nil
	}
	s := d.Metrics.Snapshot()
	resp.Set("uptime", strconv.FormatInt(int64(s.Uptime.Seconds()), 10))
	resp.Set("transactions", strconv.FormatUint(s.Transactions, 10))
	resp.Set("errors", strconv.FormatUint(s.Errors, 10))
	resp.Set("idle", strconv.FormatInt(int64(s.Idle.Seconds()), 10))
	resp.Set("total bytes in", strconv.FormatUint(s.TotalBytesIn, 10))
	resp.Set("total bytes out", strconv.FormatUint(s.TotalBytesOut, 10))
	resp.Set("average request bytes", strconv.FormatFloat(s.AverageRequestBytes, 'f', 2, 64))
	resp.Set("average response bytes", strconv.FormatFloat(s.AverageResponseBytes, 'f', 2, 64))
	resp.Set("average response time", strconv.FormatInt(s.AverageResponseTime.Microseconds(), 10))
	resp.Set("maximum response time", strconv.FormatInt(s.MaximumResponseTime.Microseconds(), 10))
	resp.Set("tps", strconv.FormatFloat(s.TransactionsPerSecond, 'f', 4, 64))
	return resp, nil
}

// ErrorEnvelope builds the response envelope for a coded failure, setting
// the "code"/"status" headers callers outside the dispatcher also need --
// transport-level framing failures use this to report 400/401/504 before
// closing the connection.
func ErrorEnvelope(se *status.Error) wire.Envelope {
	resp := wire.NewEnvelope()
	resp.Set("code", strconv.Itoa(int(se.Code)))
	resp.Set("status", se.Text)
	return resp
}
