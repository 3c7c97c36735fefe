package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBestMatch(t *testing.T) {
	headings := []string{"Overview", "Euribor rates  today", "Historic Euribor rates"}

	testCases := []struct {
		query    string
		expected int
	}{
		{query: "euribor rates today", expected: 1},
		{query: "Historic", expected: 2},
		{query: "Euribor rate today", expected: 1},
		{query: "Overveiw", expected: 0},
		{query: "mortgage calculator", expected: -1},
		{query: "", expected: -1},
	}

	for _, test := range testCases {
		t.Run(test.query, func(t *testing.T) {
			require.Equal(t, test.expected, BestMatch(test.query, headings, 0.85))
		})
	}
}
