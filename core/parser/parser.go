// Package parser turns raw input lines into pipelines of commands.
package parser

import (
	"errors"
	"fmt"

	"github.com/anmitsu/go-shlex"
)

// Command is one parsed pipeline stage.
type Command struct {
	// Args is the argument vector; Args[0] names the program.
	Args []string
	// Input is the input redirection target, valid only on the first
	// stage of a pipeline.
	Input string
	// Output is the output redirection target, valid only on the last
	// stage of a pipeline.
	Output string
	// Background is set on the last stage when the line ended with `&`.
	// The whole pipeline shares its disposition.
	Background bool
}

func (c *Command) HasInput() bool  { return c.Input != "" }
func (c *Command) HasOutput() bool { return c.Output != "" }

// Parse splits a line into pipeline stages. Operators (`|`, `<`, `>`,
// `&`) are recognized as standalone tokens; `&` must be the final
// token. A blank line parses to an empty pipeline with no error.
func Parse(line string) ([]*Command, error) {
	tokens, err := shlex.Split(line, true)
	if err != nil {
		return nil, fmt.Errorf("syntax error: %v", err)
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	background := false
	if tokens[len(tokens)-1] == "&" {
		background = true
		tokens = tokens[:len(tokens)-1]
		if len(tokens) == 0 {
			return nil, errors.New("syntax error near unexpected token `&'")
		}
	}

	var pipeline []*Command
	cur := &Command{}
	flush := func() error {
		if len(cur.Args) == 0 {
			return errors.New("syntax error near unexpected token `|'")
		}
		pipeline = append(pipeline, cur)
		cur = &Command{}
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok {
		case "|":
			if err := flush(); err != nil {
				return nil, err
			}
		case "<", ">":
			if i+1 >= len(tokens) || isOperator(tokens[i+1]) {
				return nil, fmt.Errorf("syntax error: missing file after %q", tok)
			}
			i++
			if tok == "<" {
				if cur.Input != "" {
					return nil, errors.New("syntax error: duplicate input redirection")
				}
				cur.Input = tokens[i]
			} else {
				if cur.Output != "" {
					return nil, errors.New("syntax error: duplicate output redirection")
				}
				cur.Output = tokens[i]
			}
		case "&":
			return nil, errors.New("syntax error near unexpected token `&'")
		default:
			cur.Args = append(cur.Args, tok)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	pipeline[len(pipeline)-1].Background = background
	return pipeline, nil
}

func isOperator(tok string) bool {
	switch tok {
	case "|", "<", ">", "&":
		return true
	}
	return false
}
