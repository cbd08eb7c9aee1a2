package heuristic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasNumberAndDate(t *testing.T) {
	tests := []struct {
		text       string
		wantNumber bool
		wantDate   bool
	}{
		{"Revenue rose 12.5 percent.", true, true},
		{"The meeting is on 2022-05-01.", true, true},
		{"We meet at 14:30 tomorrow.", true, true},
		{"Results for Q3 were strong.", false, true},
		{"Sales grew in 2021 overall.", true, true},
		{"Nothing quantitative here at all.", false, false},
		{"Code 12345678 was issued.", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantNumber, HasNumber(tt.text))
			assert.Equal(t, tt.wantDate, HasDate(tt.text))
		})
	}
}

func TestBoost(t *testing.T) {
	b := New(DefaultBoost)

	tests := []struct {
		name string
		a, c string
		want float64
	}{
		{"both numeric", "It costs 10 dollars.", "It costs 12 dollars.", DefaultBoost},
		{"both dated", "The meeting is on 2022-05-01.", "The meeting is on 2022-06-01.", DefaultBoost},
		{"both quarters", "Launch is in Q1 now.", "Launch is in Q4 now.", DefaultBoost},
		{"one side only", "It costs 10 dollars.", "It is very cheap.", 0},
		{"neither", "The sky is blue.", "The sky is green.", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, b.Boost(tt.a, tt.c))
			assert.Equal(t, tt.want, b.Boost(tt.c, tt.a), "boost must be symmetric")
		})
	}
}

func TestZeroBoostDisables(t *testing.T) {
	b := New(-1)
	assert.Zero(t, b.Amount())
	assert.Zero(t, b.Boost("Sold 5 units.", "Sold 7 units."))
}
