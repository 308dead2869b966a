package session

import (
	"bufio"
	"strings"
	"testing"
)

func TestSplitByNewlineOrCR(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			"newline terminated",
			"line one\nline two\n",
			[]string{"line one", "line two"},
		},
		{
			"carriage return rewrites",
			"[download]  10.0%\r[download]  20.0%\r[download]  30.0%\n",
			[]string{"[download]  10.0%", "[download]  20.0%", "[download]  30.0%"},
		},
		{
			"crlf produces no empty token",
			"line one\r\nline two\r\n",
			[]string{"line one", "line two"},
		},
		{
			"trailing data without terminator",
			"line one\nfinal",
			[]string{"line one", "final"},
		},
	}

	for _, test := range tests {
		scanner := bufio.NewScanner(strings.NewReader(test.input))
		scanner.Split(splitByNewlineOrCR)
		var got []string
		for scanner.Scan() {
			got = append(got, scanner.Text())
		}
		if len(got) != len(test.want) {
			t.Errorf("%s: tokens = %q, expected %q", test.name, got, test.want)
			continue
		}
		for i := range test.want {
			if got[i] != test.want[i] {
				t.Errorf("%s: token %d = %q, expected %q", test.name, i, got[i], test.want[i])
			}
		}
	}
}
