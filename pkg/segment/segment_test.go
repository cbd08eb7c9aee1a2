package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic",
			text: "The sky is blue today. The grass is very green! Is the sea calm now?",
			want: []string{"The sky is blue today", "The grass is very green", "Is the sea calm now"},
		},
		{
			name: "short fragments dropped",
			text: "Yes. The report was filed on time. Ok!",
			want: []string{"The report was filed on time"},
		},
		{
			name: "decimal is not a boundary",
			text: "Revenue grew 3.5 percent last year. Costs fell by half overall.",
			want: []string{"Revenue grew 3.5 percent last year", "Costs fell by half overall"},
		},
		{
			name: "lowercase continuation kept together",
			text: "It was approx. ten meters long. Nobody measured it again.",
			want: []string{"It was approx. ten meters long", "Nobody measured it again"},
		},
		{
			name: "vietnamese capital",
			text: "Cuộc họp diễn ra hôm nay. Đã có ba người tham gia.",
			want: []string{"Cuộc họp diễn ra hôm nay", "Đã có ba người tham gia"},
		},
		{
			name: "quoted opener",
			text: "She left the room quickly. \"We are done here,\" he said.",
			want: []string{"She left the room quickly", "\"We are done here,\" he said"},
		},
		{
			name: "whitespace collapsed",
			text: "  The   sky\n\tis blue.   ",
			want: []string{"The sky is blue"},
		},
		{
			name: "space before terminal punctuation",
			text: "The launch happened in 2022 ! The launch happened in 2024 .",
			want: []string{"The launch happened in 2022", "The launch happened in 2024"},
		},
		{
			name: "empty",
			text: "   ",
			want: nil,
		},
	}

	seg := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, seg.Split(tt.text))
		})
	}
}

func TestNormalizeNFKC(t *testing.T) {
	assert.Equal(t, "Q1 2022", Normalize("Ｑ１  2022"))
}
