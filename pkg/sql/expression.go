package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// ExpressionCheckError describes why a transformation expression was refused.
type ExpressionCheckError struct {
	Expression  string
	Fingerprint string
	Reason      string
}

func (e *ExpressionCheckError) Error() string {
	if e.Fingerprint != "" {
		return fmt.Sprintf("expression rejected (%s, fingerprint %s)", e.Reason, e.Fingerprint)
	}
	return fmt.Sprintf("expression rejected (%s)", e.Reason)
}

// CheckExpression screens a user-supplied transformation expression before it
// is templated into generated migration code. Expressions must be a single
// fragment with balanced string literals and no statement terminators or
// comments outside those literals.
//
// libinjection flags ordinary function calls (UPPER(x) fingerprints as "f(n"),
// so it is applied to the contents of each string literal, the way query
// parameter values are checked, and to the whole expression only when the
// fingerprint involves a string or UNION token.
//
// Example:
//
//	CheckExpression("UPPER(TRIM(email))")               // nil
//	CheckExpression("CAST(CREATED_AT AS TIMESTAMP)")    // nil
//	CheckExpression("x UNION SELECT * FROM passwords")  // *ExpressionCheckError
func CheckExpression(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}

	code, literals, ok := splitStringLiterals(expr)
	if !ok {
		return &ExpressionCheckError{Expression: expr, Reason: "unterminated string literal"}
	}
	if strings.Contains(code, ";") {
		return &ExpressionCheckError{Expression: expr, Reason: "statement terminator"}
	}
	if strings.Contains(code, "--") || strings.Contains(code, "/*") {
		return &ExpressionCheckError{Expression: expr, Reason: "comment"}
	}

	for _, lit := range literals {
		if isSQLi, fingerprint := libinjection.IsSQLi(lit); isSQLi {
			return injectionError(expr, string(fingerprint))
		}
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(expr); isSQLi && breaksOutOfFragment(string(fingerprint)) {
		return injectionError(expr, string(fingerprint))
	}
	return nil
}

func injectionError(expr, fingerprint string) error {
	return &ExpressionCheckError{
		Expression:  expr,
		Fingerprint: fingerprint,
		Reason:      "injection pattern",
	}
}

// breaksOutOfFragment reports whether a libinjection fingerprint contains a
// string ('s') or UNION ('U') token. Fingerprints made only of names,
// functions, numbers and operators describe plain column arithmetic.
func breaksOutOfFragment(fingerprint string) bool {
	return strings.ContainsAny(fingerprint, "sU")
}

// splitStringLiterals separates single-quoted literals from the rest of expr.
// code keeps the text outside literals with each literal replaced by a space.
// Doubled quotes inside a literal are an escaped quote. ok is false when a
// literal is never closed.
func splitStringLiterals(expr string) (code string, literals []string, ok bool) {
	var out, lit strings.Builder
	inLiteral := false
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if !inLiteral {
			if c == '\'' {
				inLiteral = true
				lit.Reset()
				out.WriteByte(' ')
				continue
			}
			out.WriteByte(c)
			continue
		}
		if c == '\'' {
			if i+1 < len(expr) && expr[i+1] == '\'' {
				lit.WriteByte('\'')
				i++
				continue
			}
			inLiteral = false
			literals = append(literals, lit.String())
			continue
		}
		lit.WriteByte(c)
	}
	if inLiteral {
		return "", nil, false
	}
	return out.String(), literals, true
}
