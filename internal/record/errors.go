/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package record

import "errors"

// Decode failure modes. The sync engine reports them as a 500 response
// whose status text includes the error message.
var (
	ErrEmptyRecord    = errors.New("record: empty record")
	ErrNotBracketed   = errors.New("record: missing opening or closing bracket")
	ErrTrailingJunk   = errors.New("record: unexpected characters after closing bracket")
	ErrMalformedName  = errors.New("record: missing attribute name")
	ErrMalformedQuote = errors.New("record: unterminated or invalid quoted value")
	ErrDuplicateAttr  = errors.New("record: duplicate attribute")
)
