// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"regexp"
	"strconv"

	"github.com/faultline/armunwind/log"
)

// Module-level regex constants, compiled once, matching the teacher's
// practice of precompiling pattern matchers as package state rather than
// re-compiling per call (see exception.go's use of constant bitmasks and
// this pack's ajroetker-goat parsers for the precompiled-regexp idiom).
var (
	reStackCfiInit = regexp.MustCompile(`^STACK CFI INIT ([0-9a-f]+) ([0-9a-f]+) (.+)$`)
	reStackCfi     = regexp.MustCompile(`^STACK CFI ([0-9a-f]+) (.+)$`)
)

// assembler groups a filtered line stream into FunctionCfi records.
type assembler struct {
	logger *log.Helper

	have    bool
	address uint32
	size    uint32
	cfi     []AddressCfi
}

func newAssembler(logger *log.Helper) *assembler {
	return &assembler{logger: logger}
}

// feed processes one already-filtered "STACK CFI ..." line. It returns a
// completed FunctionCfi whenever the line starts a new function (flushing
// the previous one), or ok=false if there is nothing to flush yet.
func (a *assembler) feed(line string) (fn FunctionCfi, ok bool, err error) {
	if m := reStackCfiInit.FindStringSubmatch(line); m != nil {
		addr, err := strconv.ParseUint(m[1], 16, 32)
		if err != nil {
			return FunctionCfi{}, false, malformedLinef(0, line)
		}
		size, err := strconv.ParseUint(m[2], 16, 32)
		if err != nil {
			return FunctionCfi{}, false, malformedLinef(uint32(addr), line)
		}

		var flushed FunctionCfi
		var flushOk bool
		if a.have {
			flushed, flushOk = a.flush()
		}

		a.have = true
		a.address = uint32(addr)
		a.size = uint32(size)
		a.cfi = []AddressCfi{{Address: uint32(addr), CfiText: m[3]}}

		return flushed, flushOk, nil
	}

	m := reStackCfi.FindStringSubmatch(line)
	if m == nil {
		return FunctionCfi{}, false, malformedLinef(a.address, line)
	}
	if !a.have {
		return FunctionCfi{}, false, structuralErrorf(
			"STACK CFI record before any STACK CFI INIT: %q", line)
	}

	addr, err := strconv.ParseUint(m[1], 16, 32)
	if err != nil {
		return FunctionCfi{}, false, malformedLinef(a.address, line)
	}
	a.cfi = append(a.cfi, AddressCfi{Address: uint32(addr), CfiText: m[2]})
	return FunctionCfi{}, false, nil
}

// finish flushes the final in-progress function, if any.
func (a *assembler) finish() (fn FunctionCfi, ok bool) {
	if !a.have {
		return FunctionCfi{}, false
	}
	return a.flush()
}

func (a *assembler) flush() (FunctionCfi, bool) {
	fn := FunctionCfi{Address: a.address, Size: a.size, AddressCfi: a.cfi}
	a.have = false
	a.cfi = nil
	if a.logger != nil {
		a.logger.Debugf("assembled function address=0x%x size=0x%x lines=%d",
			fn.Address, fn.Size, len(fn.AddressCfi))
	}
	return fn, true
}

// assembleFunctions runs the Line Filter followed by the CFI Record
// Assembler over lines, in order, returning the complete ordered sequence
// of FunctionCfi records (spec §4.2). It fails if the first non-filtered
// line is not an INIT line, or if the stream yields no functions at all.
func assembleFunctions(lines []string, logger *log.Helper) ([]FunctionCfi, error) {
	filter := &lineFilter{}
	asm := newAssembler(logger)

	var functions []FunctionCfi
	for _, line := range lines {
		if !filter.Filter(line) {
			continue
		}
		fn, ok, err := asm.feed(line)
		if err != nil {
			return nil, err
		}
		if ok {
			functions = append(functions, fn)
		}
	}

	if fn, ok := asm.finish(); ok {
		functions = append(functions, fn)
	}

	if len(functions) == 0 {
		return nil, structuralErrorf("no STACK CFI INIT records in input")
	}

	return functions, nil
}
