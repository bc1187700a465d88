package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		line string
		want []*Command
	}{
		{
			"single",
			"ls -la",
			[]*Command{{Args: []string{"ls", "-la"}}},
		},
		{
			"pipeline",
			"cat f | grep x | wc -l",
			[]*Command{
				{Args: []string{"cat", "f"}},
				{Args: []string{"grep", "x"}},
				{Args: []string{"wc", "-l"}},
			},
		},
		{
			"input redirection",
			"sort < in.txt",
			[]*Command{{Args: []string{"sort"}, Input: "in.txt"}},
		},
		{
			"output redirection",
			"ls > out.txt",
			[]*Command{{Args: []string{"ls"}, Output: "out.txt"}},
		},
		{
			"both redirections",
			"tr a b < in.txt > out.txt",
			[]*Command{{Args: []string{"tr", "a", "b"}, Input: "in.txt", Output: "out.txt"}},
		},
		{
			"background",
			"sleep 10 &",
			[]*Command{{Args: []string{"sleep", "10"}, Background: true}},
		},
		{
			"background pipeline",
			"cat f | wc &",
			[]*Command{
				{Args: []string{"cat", "f"}},
				{Args: []string{"wc"}, Background: true},
			},
		},
		{
			"quoted argument",
			`echo "hello world"`,
			[]*Command{{Args: []string{"echo", "hello world"}}},
		},
		{
			"redirections on separate stages",
			"cat < in.txt | wc -l > out.txt",
			[]*Command{
				{Args: []string{"cat"}, Input: "in.txt"},
				{Args: []string{"wc", "-l"}, Output: "out.txt"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.line)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"missing input file", "sort <"},
		{"missing output file", "ls >"},
		{"redirect into pipe", "ls > | wc"},
		{"empty stage", "ls | | wc"},
		{"leading pipe", "| wc"},
		{"trailing pipe", "ls |"},
		{"lonely background", "&"},
		{"background mid line", "sleep 10 & ls"},
		{"duplicate input", "sort < a < b"},
		{"duplicate output", "ls > a > b"},
		{"unterminated quote", `echo "unclosed`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.line)
			assert.Error(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestParseBlank(t *testing.T) {
	got, err := Parse("   ")
	assert.NoError(t, err)
	assert.Nil(t, got)
}
