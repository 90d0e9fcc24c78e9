/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package status holds the response code taxonomy shared by the
// authenticator, the sync engine, and the dispatcher. A numeric code
// carries its own canonical text; a handler that needs to say more wraps
// 500 with a descriptive string instead of inventing new codes.
package status

// Code is a response status code, always rendered as decimal text in the
// "code" envelope header.
type Code int

const (
	OK                    Code = 200
	NoChange              Code = 201
	Decline               Code = 202
	DeprecatedType        Code = 300
	Redirect              Code = 301
	Retry                 Code = 302
	MalformedData         Code = 400
	UnsupportedEncoding   Code = 401
	ServerUnavailable     Code = 420
	AccessDenied          Code = 430
	AccountSuspended      Code = 431
	AccountTerminated     Code = 432
	SyntaxError           Code = 500
	IllegalParameters     Code = 501
	NotImplemented        Code = 502
	ParamNotImplemented   Code = 503
	RequestTooBig         Code = 504
)

// canonical holds the default text for every code. A call site that needs
// diagnostic text (typically with 500) builds the error with New, whose
// Error.Text replaces the canonical text.
var canonical = map[Code]string{
	OK:                  "Ok",
	NoChange:            "No change",
	Decline:             "Decline",
	DeprecatedType:      "Deprecated request type",
	Redirect:            "Redirect",
	Retry:               "Retry",
	MalformedData:       "Malformed data",
	UnsupportedEncoding: "Unsupported encoding",
	ServerUnavailable:   "Server temporarily unavailable",
	AccessDenied:        "Access denied",
	AccountSuspended:    "Account suspended",
	AccountTerminated:   "Account terminated",
	SyntaxError:         "Syntax error in request",
	IllegalParameters:   "Syntax error, illegal parameters",
	NotImplemented:      "Not implemented",
	ParamNotImplemented: "Command parameter not implemented",
	RequestTooBig:       "Request too big",
}

// Text returns the canonical text for c, or "" if c carries no fixed text.
func (c Code) Text() string {
	return canonical[c]
}

// Error is a coded protocol failure: a numeric code plus the text to
// surface in the response envelope's "status" header. It is the sum type
// spec.md §9 calls for in place of exceptions-as-control-flow.
type Error struct {
	Code Code
	Text string
}

func (e *Error) Error() string {
	return e.Text
}

// New builds a descriptive error at a given code.
func New(code Code, text string) *Error {
	return &Error{Code: code, Text: text}
}

// Canonical builds an error carrying a code's fixed canonical text.
func Canonical(code Code) *Error {
	return &Error{Code: code, Text: code.Text()}
}

// AsError extracts a *Error from err, synthesizing the catch-all 500
// "Unknown error" for anything else -- the collapse rule every handler
// boundary applies before building a response envelope.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if se, ok := err.(*Error); ok {
		return se
	}
	return New(SyntaxError, "Unknown error")
}
