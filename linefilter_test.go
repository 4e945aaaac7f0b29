// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package armunwind

import "testing"

func TestLineFilter(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name: "drops non CFI lines",
			lines: []string{
				"MODULE Linux arm 000 libfoo.so",
				"FUNC 1000 10 0 foo",
				"STACK CFI INIT 1000 4 .cfa: sp 0 + .ra: lr",
			},
			want: []string{"STACK CFI INIT 1000 4 .cfa: sp 0 + .ra: lr"},
		},
		{
			name: "drops tombstone block",
			lines: []string{
				"STACK CFI INIT 0 100 .cfa: sp 0 + .ra: lr",
				"STACK CFI 10 .cfa: sp 4 +",
				"STACK CFI INIT 1000 4 .cfa: sp 0 + .ra: lr",
			},
			want: []string{"STACK CFI INIT 1000 4 .cfa: sp 0 + .ra: lr"},
		},
		{
			name: "re-enables after tombstone block ends",
			lines: []string{
				"STACK CFI INIT 0 100 .cfa: sp 0 + .ra: lr",
				"STACK CFI 10 .cfa: sp 4 +",
				"STACK CFI INIT 2000 4 .cfa: sp 0 + .ra: lr",
				"STACK CFI INIT 0 50 .cfa: sp 0 + .ra: lr",
				"STACK CFI INIT 3000 4 .cfa: sp 0 + .ra: lr",
			},
			want: []string{
				"STACK CFI INIT 2000 4 .cfa: sp 0 + .ra: lr",
				"STACK CFI INIT 3000 4 .cfa: sp 0 + .ra: lr",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &lineFilter{}
			var got []string
			for _, line := range tt.lines {
				if f.Filter(line) {
					got = append(got, line)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
