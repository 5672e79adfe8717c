package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalTimeout is the hard limit for one script evaluation, builds
// included.
const EvalTimeout = 30 * time.Second

// EvalError is a non-fatal error from user script code: a parse failure
// or a rejected build request.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates session scripts. It is safe for concurrent use; each
// Evaluate runs in a fresh sandboxed zygomys environment so results are
// deterministic and user code cannot reach the filesystem.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an engine.
func NewEngine() *Engine {
	return &Engine{}
}

type evalResult struct {
	session *Session
	errors  []EvalError
	err     error
}

// Evaluate runs a session script and returns the session it built.
//
// Return semantics follow the usual editor-binding contract:
//   - success: session + nil errors + nil error
//   - script problem: nil session + eval errors + nil error
//   - fatal problem (timeout, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(source string) (*Session, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{session: s, errors: evalErrs, err: err}
	}()

	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			// A newer evaluation started; this result is stale.
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.session, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", EvalTimeout)
	}
}

// evaluate runs the script in a fresh sandbox against a fresh session.
func (e *Engine) evaluate(source string) (*Session, []EvalError, error) {
	session := NewSession()
	if strings.TrimSpace(source) == "" {
		return session, nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, session)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygoError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygoError(err), nil
	}
	return session, nil, nil
}

var lineErrPattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// parseZygoError extracts a line number from a zygomys error message when
// one is present.
func parseZygoError(err error) []EvalError {
	msg := strings.TrimSpace(err.Error())
	if m := lineErrPattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: msg}}
}

// kwPrefix marks keyword tokens rewritten by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites script syntax that zygomys does not accept:
// :keyword tokens become marked string literals, kebab-case identifiers
// become underscore form, and ; comments become // comments. String
// literal contents are left alone.
func preprocessSource(source string) string {
	var out strings.Builder
	out.Grow(len(source) + len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		c := b[i]

		// Copy string literals verbatim.
		if c == '"' || c == '`' {
			quote := c
			out.WriteByte(c)
			i++
			for i < len(b) && b[i] != quote {
				if quote == '"' && b[i] == '\\' && i+1 < len(b) {
					out.WriteByte(b[i])
					i++
				}
				out.WriteByte(b[i])
				i++
			}
			if i < len(b) {
				out.WriteByte(b[i])
				i++
			}
			continue
		}

		// Lisp ; comments become zygomys // comments.
		if c == ';' {
			for i < len(b) && b[i] == ';' {
				i++
			}
			out.WriteString("//")
			for i < len(b) && b[i] != '\n' {
				out.WriteByte(b[i])
				i++
			}
			continue
		}

		// :keyword -> marked string literal (:= assignment excluded).
		if c == ':' && i+1 < len(b) && isLetter(b[i+1]) {
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out.WriteByte('"')
			out.WriteString(kwPrefix)
			out.Write(kebabToUnderscore(b[i+1 : j]))
			out.WriteByte('"')
			i = j
			continue
		}

		// kebab-case identifier hyphen -> underscore.
		if c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			out.WriteByte('_')
			i++
			continue
		}

		out.WriteByte(c)
		i++
	}
	return out.String()
}

func kebabToUnderscore(s []byte) []byte {
	out := make([]byte, len(s))
	for i, c := range s {
		if c == '-' {
			out[i] = '_'
		} else {
			out[i] = c
		}
	}
	return out
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
