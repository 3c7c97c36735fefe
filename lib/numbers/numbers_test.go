package numbers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func values(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.String()
	}
	return out
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "3,512", expected: "3.512"},
		{in: "3.512", expected: "3.512"},
		{in: "-0.25", expected: "-0.25"},
		{in: "1 234,5", expected: "1234.5"},
		{in: "1.234.567", expected: "1234567"},
		{in: "1.234,56", expected: "1234.56"},
		{in: "1,234.56", expected: "1234.56"},
		{in: "3.51 %", expected: "3.51"},
		{in: "−0.5", expected: "-0.5"},
	}
	for _, test := range testCases {
		t.Run(test.in, func(t *testing.T) {
			value, err := Parse(test.in)
			require.NoError(t, err)
			require.Equal(t, test.expected, value.String())
		})
	}

	_, err := Parse("abc")
	require.Error(t, err)
}

func TestFromText(t *testing.T) {
	tokens := FromText("Euribor 3M stood at 3,512% on 2024-01-31, down -0.25 from 1 234,5 bp.")
	require.Equal(t, []string{"3.512%", "2024", "1", "31", "-0.25", "1234.5"}, values(tokens))
	require.Equal(t, "3,512%", tokens[0].Text)
	require.True(t, tokens[0].Percent)

	require.Empty(t, FromText("no numbers in EUR3 or H2O"))

	tokens = FromText("EUR-3.5 and rate+0,25%")
	require.Equal(t, []string{"3.5", "0.25%"}, values(tokens))
	require.Equal(t, "3.5", tokens[0].Text)
}

func TestFromJSON(t *testing.T) {
	body := []byte(`{
		"rate": 3.512,
		"meta": {"label": "Euribor 3M at 3,9 %", "a.b": 7},
		"history": [1, {"v": -0.5}],
		"flag": true
	}`)
	tokens, err := FromJSON(body)
	require.NoError(t, err)
	require.Equal(t, []string{
		"rate=3.512",
		"meta.label=3.9%",
		`meta.a\.b=7`,
		"history.0=1",
		"history.1.v=-0.5",
	}, values(tokens))

	// paths resolve with gjson
	require.Equal(t, int64(7), gjson.GetBytes(body, tokens[2].Path).Int())

	_, err = FromJSON([]byte("{"))
	require.Error(t, err)
}
