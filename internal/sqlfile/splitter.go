package sqlfile

import "strings"

// Script is a SQL file broken into executable statements
type Script struct {
	Statements []string
	// Trailing holds text after the last semicolon; it is never executed
	Trailing string
}

type scanState int

const (
	stateNormal scanState = iota
	stateSingleQuote
	stateDoubleQuote
	stateBacktick
	stateLineComment
	stateBlockComment
)

// Parse splits text on semicolons that appear outside quotes and comments.
// Comments are dropped, quoted text is kept verbatim and empty statements
// are discarded. backslashEscapes selects MySQL string literals, where a
// backslash escapes the next character; otherwise only '' escapes a quote.
func Parse(text string, backslashEscapes bool) Script {
	var (
		script  Script
		current strings.Builder
		state   = stateNormal
		runes   = []rune(text)
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			script.Statements = append(script.Statements, stmt)
		}
		current.Reset()
	}

	peek := func(i int) rune {
		if i+1 < len(runes) {
			return runes[i+1]
		}
		return 0
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch state {
		case stateNormal:
			switch {
			case r == '-' && peek(i) == '-':
				state = stateLineComment
				i++
			case r == '/' && peek(i) == '*':
				state = stateBlockComment
				current.WriteRune(' ')
				i++
			case r == ';':
				flush()
			default:
				switch r {
				case '\'':
					state = stateSingleQuote
				case '"':
					state = stateDoubleQuote
				case '`':
					state = stateBacktick
				}
				current.WriteRune(r)
			}

		case stateSingleQuote:
			current.WriteRune(r)
			switch {
			case backslashEscapes && r == '\\' && i+1 < len(runes):
				i++
				current.WriteRune(runes[i])
			case r == '\'' && peek(i) == '\'':
				i++
				current.WriteRune(runes[i])
			case r == '\'':
				state = stateNormal
			}

		case stateDoubleQuote, stateBacktick:
			closing := '"'
			if state == stateBacktick {
				closing = '`'
			}
			current.WriteRune(r)
			if r == closing {
				if peek(i) == closing {
					i++
					current.WriteRune(runes[i])
				} else {
					state = stateNormal
				}
			}

		case stateLineComment:
			if r == '\n' {
				current.WriteRune('\n')
				state = stateNormal
			}

		case stateBlockComment:
			if r == '*' && peek(i) == '/' {
				state = stateNormal
				i++
			}
		}
	}

	script.Trailing = strings.TrimSpace(current.String())
	return script
}

// Split returns only the executable statements of text
func Split(text string, backslashEscapes bool) []string {
	return Parse(text, backslashEscapes).Statements
}
