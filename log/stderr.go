/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package log

import (
	"os"
)

// NewStderrLogger builds a logger writing RFC5424 lines to stderr. If
// fileOverride is non-empty, the logger's lines are also appended to that
// file. Anything else written to stderr (such as a panic's backtrace) does
// not go to the file.
func NewStderrLogger(fileOverride string) (lgr *Logger, err error) {
	lgr = New(os.Stderr)
	if len(fileOverride) > 0 {
		var fout *os.File
		if fout, err = os.OpenFile(fileOverride, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err != nil {
			return
		}
		err = lgr.AddWriter(fout)
	}
	return
}
