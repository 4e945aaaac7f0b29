// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import "strings"

// stackCfiPrefix is the only line prefix the Line Filter lets through.
const stackCfiPrefix = "STACK CFI "

// tombstoneInitPrefix marks the INIT record of a dead-code sentinel
// function; every line belonging to that function is dropped until the
// next INIT record.
const tombstoneInitPrefix = "STACK CFI INIT 0 "

// stackCfiInitPrefix marks any INIT record, tombstone or not.
const stackCfiInitPrefix = "STACK CFI INIT "

// lineFilter drops non-CFI lines and excises tombstone functions from a
// line stream, per spec §4.1. It is stateful: in_tombstone tracks whether
// lines are currently inside a dead-code function's record.
type lineFilter struct {
	inTombstone bool
}

// Filter reports whether line should be emitted downstream, updating the
// filter's tombstone state as a side effect. Call it once per input line,
// in order.
func (f *lineFilter) Filter(line string) bool {
	if !strings.HasPrefix(line, stackCfiPrefix) {
		return false
	}

	if strings.HasPrefix(line, tombstoneInitPrefix) {
		f.inTombstone = true
	} else if strings.HasPrefix(line, stackCfiInitPrefix) {
		f.inTombstone = false
	}

	return !f.inTombstone
}
