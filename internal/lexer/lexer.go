// Package lexer turns FlowLang source text into tokens. Integer
// literals that do not fit in an int64 become BigInteger tokens
// instead of failing.
package lexer

import (
	"strconv"
	"strings"

	"flowlang/internal/bigint"
	"flowlang/internal/errs"
)

type TokenType int

const (
	// Literals
	STRING TokenType = iota
	INTEGER
	BIGINTEGER
	FLOAT
	BOOLEAN
	IDENT

	// Keywords
	LET
	BE
	DEF
	WITH
	DO
	END
	IF
	THEN
	ELSE
	WHILE
	FOR
	FROM
	TO
	SHOW
	RETURN
	IMPORT
	EXPORT
	AS
	TRY
	CATCH
	NULL

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	EQ
	NOTEQ
	GT
	GTEQ
	LT
	LTEQ
	AND
	OR
	NOT

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	COMMA
	DOT
	COLON
	ARROW
	ELLIPSIS
	ASSIGN

	NEWLINE
	EOF
)

var tokenNames = map[TokenType]string{
	STRING: "string", INTEGER: "integer", BIGINTEGER: "big integer",
	FLOAT: "float", BOOLEAN: "boolean", IDENT: "identifier",
	LET: "'let'", BE: "'be'", DEF: "'def'", WITH: "'with'", DO: "'do'",
	END: "'end'", IF: "'if'", THEN: "'then'", ELSE: "'else'",
	WHILE: "'while'", FOR: "'for'", FROM: "'from'", TO: "'to'",
	SHOW: "'show'", RETURN: "'return'", IMPORT: "'import'",
	EXPORT: "'export'", AS: "'as'", TRY: "'try'", CATCH: "'catch'",
	NULL: "'null'",
	PLUS: "'+'", MINUS: "'-'", STAR: "'*'", SLASH: "'/'", PERCENT: "'%'",
	EQ: "'=='", NOTEQ: "'!='", GT: "'>'", GTEQ: "'>='", LT: "'<'",
	LTEQ: "'<='", AND: "'and'", OR: "'or'", NOT: "'not'",
	LPAREN: "'('", RPAREN: "')'", LBRACKET: "'['", RBRACKET: "']'",
	LBRACE: "'{'", RBRACE: "'}'", COMMA: "','", DOT: "'.'",
	COLON: "':'", ARROW: "'=>'", ELLIPSIS: "'...'", ASSIGN: "'='",
	NEWLINE: "newline", EOF: "end of input",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown token"
}

type Token struct {
	Type   TokenType
	Lexeme string
	Int    int64
	Float  float64
	Big    *bigint.Int
	Bool   bool
	Line   int
}

var keywords = map[string]TokenType{
	"let": LET, "be": BE, "def": DEF, "with": WITH, "do": DO,
	"end": END, "if": IF, "then": THEN, "else": ELSE, "while": WHILE,
	"for": FOR, "from": FROM, "to": TO, "show": SHOW, "return": RETURN,
	"import": IMPORT, "export": EXPORT, "as": AS, "try": TRY,
	"catch": CATCH, "null": NULL, "and": AND, "or": OR, "not": NOT,
}

type Lexer struct {
	src  []rune
	pos  int
	line int
}

func New(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1}
}

// Tokenize scans the whole input, always ending with an EOF token.
func Tokenize(src string) ([]Token, error) {
	l := New(src)
	var toks []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) atEnd() bool { return l.pos >= len(l.src) }

func (l *Lexer) current() rune {
	if l.atEnd() {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peek(ahead int) rune {
	if l.pos+ahead >= len(l.src) {
		return 0
	}
	return l.src[l.pos+ahead]
}

func (l *Lexer) advance() rune {
	ch := l.src[l.pos]
	l.pos++
	return ch
}

func (l *Lexer) skipBlanksAndComments() {
	for !l.atEnd() {
		switch l.current() {
		case ' ', '\t', '\r':
			l.pos++
		case '#':
			for !l.atEnd() && l.current() != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

func (l *Lexer) tok(t TokenType, lexeme string) Token {
	return Token{Type: t, Lexeme: lexeme, Line: l.line}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	l.skipBlanksAndComments()
	if l.atEnd() {
		return l.tok(EOF, ""), nil
	}

	ch := l.current()
	switch {
	case ch == '\n':
		t := l.tok(NEWLINE, "\n")
		l.advance()
		l.line++
		return t, nil
	case ch >= '0' && ch <= '9':
		return l.readNumber()
	case ch == '"':
		return l.readString()
	case ch == '_' || isAlpha(ch):
		return l.readIdentifier(), nil
	}

	l.advance()
	switch ch {
	case '+':
		return l.tok(PLUS, "+"), nil
	case '-':
		return l.tok(MINUS, "-"), nil
	case '*':
		return l.tok(STAR, "*"), nil
	case '/':
		return l.tok(SLASH, "/"), nil
	case '%':
		return l.tok(PERCENT, "%"), nil
	case '(':
		return l.tok(LPAREN, "("), nil
	case ')':
		return l.tok(RPAREN, ")"), nil
	case '[':
		return l.tok(LBRACKET, "["), nil
	case ']':
		return l.tok(RBRACKET, "]"), nil
	case '{':
		return l.tok(LBRACE, "{"), nil
	case '}':
		return l.tok(RBRACE, "}"), nil
	case ',':
		return l.tok(COMMA, ","), nil
	case ':':
		return l.tok(COLON, ":"), nil
	case '.':
		if l.current() == '.' && l.peek(1) == '.' {
			l.advance()
			l.advance()
			return l.tok(ELLIPSIS, "..."), nil
		}
		return l.tok(DOT, "."), nil
	case '=':
		if l.current() == '=' {
			l.advance()
			return l.tok(EQ, "=="), nil
		}
		if l.current() == '>' {
			l.advance()
			return l.tok(ARROW, "=>"), nil
		}
		return l.tok(ASSIGN, "="), nil
	case '!':
		if l.current() == '=' {
			l.advance()
			return l.tok(NOTEQ, "!="), nil
		}
		return Token{}, errs.Syntax(l.line, "unexpected character '!', did you mean '!='?")
	case '>':
		if l.current() == '=' {
			l.advance()
			return l.tok(GTEQ, ">="), nil
		}
		return l.tok(GT, ">"), nil
	case '<':
		if l.current() == '=' {
			l.advance()
			return l.tok(LTEQ, "<="), nil
		}
		return l.tok(LT, "<"), nil
	}
	return Token{}, errs.Syntax(l.line, "unexpected character %q", string(ch))
}

func isAlpha(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isAlphaNum(ch rune) bool {
	return isAlpha(ch) || ch == '_' || (ch >= '0' && ch <= '9')
}

func (l *Lexer) readIdentifier() Token {
	start := l.pos
	for !l.atEnd() && isAlphaNum(l.current()) {
		l.pos++
	}
	word := string(l.src[start:l.pos])
	if kw, ok := keywords[word]; ok {
		return l.tok(kw, word)
	}
	if word == "true" || word == "false" {
		t := l.tok(BOOLEAN, word)
		t.Bool = word == "true"
		return t
	}
	return l.tok(IDENT, word)
}

func (l *Lexer) readNumber() (Token, error) {
	start := l.pos
	for !l.atEnd() && l.current() >= '0' && l.current() <= '9' {
		l.pos++
	}
	isFloat := false
	if l.current() == '.' && l.peek(1) >= '0' && l.peek(1) <= '9' {
		isFloat = true
		l.pos++
		for !l.atEnd() && l.current() >= '0' && l.current() <= '9' {
			l.pos++
		}
	}
	text := string(l.src[start:l.pos])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Token{}, errs.Syntax(l.line, "invalid float literal %q", text)
		}
		t := l.tok(FLOAT, text)
		t.Float = f
		return t, nil
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		t := l.tok(INTEGER, text)
		t.Int = i
		return t, nil
	}
	big, err := bigint.FromString(text)
	if err != nil {
		return Token{}, errs.Syntax(l.line, "invalid integer literal %q", text)
	}
	t := l.tok(BIGINTEGER, text)
	t.Big = big
	return t, nil
}

func (l *Lexer) readString() (Token, error) {
	line := l.line
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.atEnd() {
			return Token{}, errs.Syntax(line, "unterminated string")
		}
		ch := l.advance()
		switch ch {
		case '"':
			t := l.tok(STRING, sb.String())
			t.Line = line
			return t, nil
		case '\\':
			if l.atEnd() {
				return Token{}, errs.Syntax(line, "unterminated string")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				return Token{}, errs.Syntax(l.line, "invalid escape '\\%s'", string(esc))
			}
		case '\n':
			l.line++
			sb.WriteRune(ch)
		default:
			sb.WriteRune(ch)
		}
	}
}
