package armunwind

import "strings"

// Fuzz is a go-fuzz entry point over the whole Build pipeline, from the
// Line Filter through the Function Offset Table Encoder, mirroring the teacher's own
// fuzz.go. A corpus seed is raw CFI text, one record per line, so fuzzing
// needs no PE-style binary fixtures.
func Fuzz(data []byte) int {
	lines := strings.Split(string(data), "\n")

	result, err := Build(lines, nil)
	if err != nil {
		return 0
	}
	if len(result.InstructionTable.Bytes) == 0 && len(result.OffsetTable.Bytes) == 0 {
		return 0
	}
	return 1
}
