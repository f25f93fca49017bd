package transport

import "testing"

func TestSequenceFilter(t *testing.T) {
	tests := []struct {
		name string
		seqs []uint8
		want []bool
	}{
		{"decrease rejected", []uint8{5, 3, 6}, []bool{true, false, true}},
		{"wraparound accepted", []uint8{250, 255, 2}, []bool{true, true, true}},
		{"duplicate rejected", []uint8{9, 9, 10}, []bool{true, false, true}},
		{"half window", []uint8{0, 127, 254}, []bool{true, true, true}},
		{"beyond half window", []uint8{0, 128}, []bool{true, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSequenceFilter(0)
			for i, seq := range tt.seqs {
				if got := f.Accept(seq); got != tt.want[i] {
					t.Errorf("Accept(%d) at %d = %v, want %v", seq, i, got, tt.want[i])
				}
			}
		})
	}
}

func TestSequenceFilterResync(t *testing.T) {
	f := NewSequenceFilter(3)
	f.Accept(100)

	if f.Accept(10) || f.Accept(11) {
		t.Fatal("expected stale numbers to be rejected")
	}
	if !f.Accept(12) {
		t.Fatal("expected resync on third consecutive rejection")
	}
	if !f.Accept(13) {
		t.Error("expected filter to follow the new counter")
	}
}

func TestSequenceFilterReset(t *testing.T) {
	f := NewSequenceFilter(0)
	f.Accept(200)
	f.Reset()

	if _, primed := f.Last(); primed {
		t.Fatal("expected reset filter to be unprimed")
	}
	if !f.Accept(1) {
		t.Error("expected first number after reset to be accepted")
	}
}
