/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Command taskd is the multi-tenant task-sync server: it accepts
// length-framed envelope connections, authenticates the org/user/key
// triple against the on-disk tree, and runs each sync request through
// the three-way merge engine against that user's append-only log.
package main

import (
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gravwell/taskd/internal/auth"
	"github.com/gravwell/taskd/internal/config"
	"github.com/gravwell/taskd/internal/dispatch"
	"github.com/gravwell/taskd/internal/metrics"
	"github.com/gravwell/taskd/internal/status"
	"github.com/gravwell/taskd/internal/sync"
	"github.com/gravwell/taskd/internal/transport"
	"github.com/gravwell/taskd/internal/txlog"
	"github.com/gravwell/taskd/internal/wire"
	tasklog "github.com/gravwell/taskd/log"
)

const defaultConfigLoc = `/opt/taskd/etc/taskd.conf`

var (
	confLoc = flag.String("config-file", defaultConfigLoc, "Location for configuration file")
	verbose = flag.Bool("v", false, "Display verbose status updates to stdout")

	lg *tasklog.Logger
)

func init() {
	flag.Parse()
	var err error
	if lg, err = tasklog.NewStderrLogger(""); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to get stderr logger: %v\n", err)
		os.Exit(-1)
	}
}

func main() {
	cfg, err := config.Load(*confLoc)
	if err != nil {
		lg.FatalCode(-1, fmt.Sprintf("failed to load configuration %s", *confLoc), tasklog.KVErr(err))
		return
	}

	if lvl := cfg.GetDefault("ip.log", ""); lvl != "" {
		if err := lg.SetLevelString(lvl); err != nil {
			lg.FatalCode(-1, fmt.Sprintf("invalid log level %q", lvl), tasklog.KVErr(err))
			return
		}
	}

	root := cfg.GetDefault("root", "/var/lib/taskd")
	bind := cfg.GetDefault("bind", ":53589")
	debugBind := cfg.GetDefault("debug.bind", "")

	limit, err := cfg.GetInt("request.limit", 8*1024*1024)
	if err != nil {
		lg.FatalCode(-1, "invalid request.limit", tasklog.KVErr(err))
		return
	}

	a, err := auth.New(root, lg)
	if err != nil {
		lg.FatalCode(-1, "failed to start authenticator", tasklog.KVErr(err))
		return
	}
	defer a.Close()

	store := txlog.New(root)
	engine := sync.New()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := dispatch.New(a, store, engine, m, lg)

	if debugBind != "" {
		router := metrics.Router(reg, m)
		go func() {
			if err := http.ListenAndServe(debugBind, router); err != nil {
				lg.Error("debug listener exited", tasklog.KVErr(err))
			}
		}()
		lg.Info("debug endpoint listening", tasklog.KV("bind", debugBind))
	}

	var ln net.Listener
	certFile, keyFile := cfg.GetDefault("tls.cert", ""), cfg.GetDefault("tls.key", "")
	var tr transport.Transport
	if certFile != "" && keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			lg.FatalCode(-1, "failed to load TLS certificate", tasklog.KVErr(err))
			return
		}
		tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
		ln, err = tls.Listen("tcp", bind, tlsCfg)
		if err != nil {
			lg.FatalCode(-1, fmt.Sprintf("failed to listen on %s", bind), tasklog.KVErr(err))
			return
		}
		tr = transport.NewTLS(uint32(limit))
	} else {
		ln, err = net.Listen("tcp", bind)
		if err != nil {
			lg.FatalCode(-1, fmt.Sprintf("failed to listen on %s", bind), tasklog.KVErr(err))
			return
		}
		tr = transport.NewPlain(uint32(limit))
	}
	defer ln.Close()

	if *verbose {
		fmt.Printf("taskd listening on %s, data root %s\n", bind, root)
	}
	lg.Info("taskd listening", tasklog.KV("bind", bind))

	serve(ln, tr, d)
}

// serve runs the accept loop: one goroutine per connection, each
// handling requests serially until the client disconnects.
func serve(ln net.Listener, tr transport.Transport, d *dispatch.Dispatcher) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			lg.Error("accept failed", tasklog.KVErr(err))
			continue
		}
		go handleConn(conn, tr, d)
	}
}

func handleConn(conn net.Conn, tr transport.Transport, d *dispatch.Dispatcher) {
	defer conn.Close()
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		req, err := tr.ReadEnvelope(conn)
		if err != nil {
			if se := framingError(err); se != nil {
				tr.WriteEnvelope(conn, dispatch.ErrorEnvelope(se))
			}
			return
		}
		resp := d.Handle(req)
		if err := tr.WriteEnvelope(conn, resp); err != nil {
			return
		}
	}
}

// framingError maps a wire/transport decoding failure to the status code
// a response envelope must carry before the connection is closed. It
// returns nil for errors with no framing-level meaning (a reset
// connection, a read timeout) that call for a silent close instead.
func framingError(err error) *status.Error {
	switch {
	case errors.Is(err, wire.ErrFrameTooBig):
		return status.Canonical(status.RequestTooBig)
	case errors.Is(err, wire.ErrUnsupportedEncoding):
		return status.Canonical(status.UnsupportedEncoding)
	case errors.Is(err, wire.ErrMalformedEnvelope), errors.Is(err, wire.ErrDuplicateHeader), errors.Is(err, wire.ErrFrameTooSmall):
		return status.Canonical(status.MalformedData)
	default:
		return nil
	}
}

