// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import (
	"bufio"
	"bytes"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// ReadLines reads every line of the CFI text file at path and returns
// them, choosing between a buffered scanner and an mmap-backed reader the
// same way file.go's New (mmap) and NewBytes (buffer) split the teacher's
// two entry points, selected here by Options.MmapInput rather than by
// separate functions.
func ReadLines(path string, opts *Options) ([]string, error) {
	mmapInput := opts != nil && opts.MmapInput
	if mmapInput {
		return readLinesMmap(path)
	}
	return readLinesBuffered(path)
}

func readLinesBuffered(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// readLinesMmap memory-maps path read-only and splits it into lines
// in-place, avoiding a second full-file copy for large symbol dumps.
func readLinesMmap(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer data.Unmap()

	var lines []string
	for _, raw := range bytes.Split(data, []byte("\n")) {
		raw = bytes.TrimRight(raw, "\r")
		lines = append(lines, string(raw))
	}
	return lines, nil
}
