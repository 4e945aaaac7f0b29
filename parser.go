// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"regexp"
	"strconv"
)

// The four CFI textual grammars this translator understands, precompiled
// once at package init the way the teacher precompiles its bitmask and
// opcode tables as package-level constants (exception.go).
var (
	// Variant N — null/initial state: ".cfa: sp 0 + .ra: lr".
	reNullState = regexp.MustCompile(`^\.cfa: sp 0 \+ \.ra: lr$`)

	// Variant P — push / sp-subtract. Three optional clauses in fixed order:
	// CFA delta, return-address save, zero or more register saves.
	rePushOrSubSp = regexp.MustCompile(
		`^(?:\.cfa: sp (\d+) \+ ?)?` +
			`(?:\.ra: \.cfa (-\d+) \+ \^ ?)?` +
			`((?:r\d+: \.cfa -\d+ \+ \^ ?)*)$`)
	rePushRegister = regexp.MustCompile(`r(\d+): \.cfa -\d+ \+ \^`)

	// Variant V — vpush (floating point). Optional CFA delta followed by
	// one or more unnamed_register saves.
	reVPush = regexp.MustCompile(
		`^(?:\.cfa: sp (\d+) \+ )?` +
			`(?:unnamed_register\d+: \.cfa -\d+ \+ \^ ?)+$`)

	// Variant S — store-sp: ".cfa: r<K> <N> +".
	reStoreSp = regexp.MustCompile(`^\.cfa: r(\d+) (\d+) \+$`)
)

// parseAddressCfi dispatches a.CfiText to the first matching variant,
// returning the normalized action and the new CFA-SP offset. cfaSpOffset
// is the CFA-SP offset in effect before this line is applied. Exactly one
// variant must match; no match is ErrMalformedLine.
func parseAddressCfi(a AddressCfi, cfaSpOffset int32) (UnwindType, int32, error) {
	if reNullState.MatchString(a.CfiText) {
		return UnwindType{Kind: ReturnToLr}, 0, nil
	}

	if m := rePushOrSubSp.FindStringSubmatch(a.CfiText); m != nil && a.CfiText != "" {
		return parsePushOrSubSp(a, cfaSpOffset, m)
	}

	if m := reVPush.FindStringSubmatch(a.CfiText); m != nil {
		return parseVPush(a, cfaSpOffset, m)
	}

	if m := reStoreSp.FindStringSubmatch(a.CfiText); m != nil {
		return parseStoreSp(a, cfaSpOffset, m)
	}

	return UnwindType{}, 0, malformedLinef(a.Address, a.CfiText)
}

// parsePushOrSubSp implements Variant P (spec §4.3).
//
// The regex's three capture groups are each optional; Go's regexp package
// reports an unmatched optional group as an empty string rather than nil,
// so emptiness (not nilness) is what distinguishes "absent" from "present
// with no digits" for the CFA delta and return-address groups.
func parsePushOrSubSp(a AddressCfi, cfaSpOffset int32, m []string) (UnwindType, int32, error) {
	var newCfaSpOffset int32
	haveNewCfaSpOffset := m[1] != ""
	if haveNewCfaSpOffset {
		v, err := strconv.ParseInt(m[1], 10, 32)
		if err != nil {
			return UnwindType{}, 0, malformedLinef(a.Address, a.CfiText)
		}
		newCfaSpOffset = int32(v)
	}

	savedRa := m[2] != ""

	var registers []uint8
	for _, rm := range rePushRegister.FindAllStringSubmatch(m[3], -1) {
		n, err := strconv.ParseUint(rm[1], 10, 8)
		if err != nil {
			return UnwindType{}, 0, malformedLinef(a.Address, a.CfiText)
		}
		if n >= 4 && n <= 15 {
			registers = append(registers, uint8(n))
		}
	}
	if savedRa {
		registers = append(registers, 14)
	}
	sortRegisters(registers)

	var spOffset int32
	if haveNewCfaSpOffset {
		spOffset = newCfaSpOffset - cfaSpOffset
		if spOffset%4 != 0 {
			return UnwindType{}, 0, encodingRangef(
				"sp delta %d not a multiple of 4 at address=0x%x", spOffset, a.Address)
		}
		if spOffset >= int32(4*len(registers)) {
			spOffset -= int32(4 * len(registers))
		}
	}

	result := cfaSpOffset
	if haveNewCfaSpOffset {
		result = newCfaSpOffset
	}

	return UnwindType{
		Kind:      UpdateSpAndOrPopRegisters,
		SpOffset:  spOffset,
		Registers: registers,
	}, result, nil
}

// parseVPush implements Variant V (spec §4.3). Floating-point registers
// are never listed in the pop set; they require no runtime action beyond
// any CFA-SP adjustment.
func parseVPush(a AddressCfi, cfaSpOffset int32, m []string) (UnwindType, int32, error) {
	if m[1] == "" {
		return UnwindType{Kind: NoAction}, cfaSpOffset, nil
	}

	v, err := strconv.ParseInt(m[1], 10, 32)
	if err != nil {
		return UnwindType{}, 0, malformedLinef(a.Address, a.CfiText)
	}
	newCfaSpOffset := int32(v)

	spOffset := newCfaSpOffset - cfaSpOffset
	if spOffset%4 != 0 {
		return UnwindType{}, 0, encodingRangef(
			"sp delta %d not a multiple of 4 at address=0x%x", spOffset, a.Address)
	}

	return UnwindType{
		Kind:     UpdateSpAndOrPopRegisters,
		SpOffset: spOffset,
	}, newCfaSpOffset, nil
}

// parseStoreSp implements Variant S (spec §4.3): dynamic stack allocation
// functions that have cached sp in a general register.
func parseStoreSp(a AddressCfi, cfaSpOffset int32, m []string) (UnwindType, int32, error) {
	reg, err := strconv.ParseUint(m[1], 10, 8)
	if err != nil {
		return UnwindType{}, 0, malformedLinef(a.Address, a.CfiText)
	}
	v, err := strconv.ParseInt(m[2], 10, 32)
	if err != nil {
		return UnwindType{}, 0, malformedLinef(a.Address, a.CfiText)
	}
	newCfaSpOffset := int32(v)

	spOffset := newCfaSpOffset - cfaSpOffset
	if spOffset%4 != 0 {
		return UnwindType{}, 0, encodingRangef(
			"sp delta %d not a multiple of 4 at address=0x%x", spOffset, a.Address)
	}

	return UnwindType{
		Kind:           RestoreSpFromRegister,
		SourceRegister: uint8(reg),
		SpOffset:       spOffset,
	}, newCfaSpOffset, nil
}

// sortRegisters sorts a register list ascending with a simple insertion
// sort; register lists here never exceed a handful of entries (r4-r15),
// so this avoids pulling in sort.Slice for a trivially small input.
func sortRegisters(r []uint8) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && r[j-1] > r[j]; j-- {
			r[j-1], r[j] = r[j], r[j-1]
		}
	}
}

// buildFunctionUnwind runs the CFI Parser Dispatch over every AddressCfi in
// fn, in order, threading the CFA-SP offset (initially 0) from one address
// to the next.
func buildFunctionUnwind(fn FunctionCfi) (FunctionUnwind, error) {
	if len(fn.AddressCfi) == 0 {
		return FunctionUnwind{}, invariantf("function at address=0x%x has no CFI records", fn.Address)
	}
	if fn.AddressCfi[0].Address != fn.Address {
		return FunctionUnwind{}, invariantf(
			"function at address=0x%x: first CFI address 0x%x does not match function start",
			fn.Address, fn.AddressCfi[0].Address)
	}

	unwinds := make([]AddressUnwind, 0, len(fn.AddressCfi))
	var cfaSpOffset int32
	prevAddress := fn.Address
	for i, a := range fn.AddressCfi {
		if i > 0 {
			if a.Address <= prevAddress {
				return FunctionUnwind{}, invariantf(
					"function at address=0x%x: address 0x%x does not strictly increase after 0x%x",
					fn.Address, a.Address, prevAddress)
			}
			if a.Address >= fn.Address+fn.Size {
				return FunctionUnwind{}, invariantf(
					"function at address=0x%x: address 0x%x outside [start, start+size)",
					fn.Address, a.Address)
			}
		}
		prevAddress = a.Address

		action, newOffset, err := parseAddressCfi(a, cfaSpOffset)
		if err != nil {
			return FunctionUnwind{}, err
		}
		cfaSpOffset = newOffset

		unwinds = append(unwinds, AddressUnwind{
			AddressOffset: a.Address - fn.Address,
			Action:        action,
		})
	}

	return FunctionUnwind{
		Address:        fn.Address,
		Size:           fn.Size,
		AddressUnwinds: unwinds,
	}, nil
}
