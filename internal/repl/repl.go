// Package repl implements the interactive prompt on top of the
// interpreter, so closures, try/catch and imports all work at the
// prompt.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"flowlang/internal/ast"
	"flowlang/internal/interp"
	"flowlang/internal/lexer"
	"flowlang/internal/parser"
	"flowlang/internal/stdlib"
	"flowlang/internal/value"
)

type Repl struct {
	in      io.Reader
	out     io.Writer
	interp  *interp.Interp
	prompts bool
}

// New builds a REPL over the given streams. Prompts are printed only
// when stdin is a terminal.
func New(in io.Reader, out io.Writer, builtins *stdlib.Registry) *Repl {
	prompts := false
	if f, ok := in.(*os.File); ok {
		prompts = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	builtins.Out = out
	return &Repl{
		in:      in,
		out:     out,
		interp:  interp.New(builtins),
		prompts: prompts,
	}
}

// Run reads and evaluates input until EOF or 'exit'. Blocks spanning
// several lines are buffered until their 'end' arrives.
func (r *Repl) Run() error {
	if r.prompts {
		fmt.Fprintln(r.out, "FlowLang | type 'exit' to quit")
	}
	scanner := bufio.NewScanner(r.in)
	var buf strings.Builder

	for {
		if r.prompts {
			if buf.Len() == 0 {
				fmt.Fprint(r.out, ">>> ")
			} else {
				fmt.Fprint(r.out, "... ")
			}
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := scanner.Text()
		if buf.Len() == 0 && strings.TrimSpace(line) == "exit" {
			return nil
		}
		buf.WriteString(line)
		buf.WriteByte('\n')

		src := buf.String()
		if openBlocks(src) > 0 {
			continue
		}
		buf.Reset()
		r.evaluate(src)
	}
}

// evaluate runs one buffered input and echoes expression results.
func (r *Repl) evaluate(src string) {
	if strings.TrimSpace(src) == "" {
		return
	}
	prog, err := parser.Parse(src)
	if err != nil {
		fmt.Fprintln(r.out, err)
		return
	}
	for _, stmt := range prog.Statements {
		if expr, ok := stmt.(*ast.ExprStmt); ok {
			result, err := r.interp.Eval(expr.Expr)
			if err != nil {
				fmt.Fprintln(r.out, err)
				return
			}
			if result != nil {
				fmt.Fprintln(r.out, value.ToString(result))
			}
			continue
		}
		if err := r.interp.RunStatement(stmt); err != nil {
			fmt.Fprintln(r.out, err)
			return
		}
	}
}

// openBlocks counts block openers not yet closed by 'end'. An
// unlexable buffer is treated as complete so the parser reports the
// error.
func openBlocks(src string) int {
	tokens, err := lexer.Tokenize(src)
	if err != nil {
		return 0
	}
	depth := 0
	for i, tok := range tokens {
		switch tok.Type {
		case lexer.DEF, lexer.WHILE, lexer.FOR, lexer.TRY:
			depth++
		case lexer.IF:
			// 'else if' continues the block already open
			if i == 0 || tokens[i-1].Type != lexer.ELSE {
				depth++
			}
		case lexer.END:
			depth--
		}
	}
	if depth < 0 {
		return 0
	}
	return depth
}
