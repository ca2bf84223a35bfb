package dpl

import (
	"math/rand"
	"sync/atomic"

	"github.com/teris-io/shortid"
)

// traceIDABC is the alphabet shortid.DEFAULT_ABC is built from; kept
// separate so the generator and nextTie draw from the same characters.
const traceIDABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var (
	traceGen *shortid.Shortid
	traceTie int32
)

func init() {
	traceGen = shortid.MustNew(4 /*worker*/, traceIDABC, 1)
}

// genTraceID produces a short, human-readable id for Request.TraceID,
// prepending a random letter when shortid's id doesn't start with a letter
// and appending one when it ends in '-' or '_'.
func genTraceID() string {
	id := traceGen.MustGenerate()
	var head, tail string
	if !isAlphaByte(id[0]) {
		head = string(rune('A' + rand.Int()%26))
	}
	if c := id[len(id)-1]; c == '-' || c == '_' {
		tail = string(rune('a' + rand.Int()%26))
	}
	return head + id + tail
}

func isAlphaByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// nextTie returns a short, monotonically varying tie-breaker string, used
// to disambiguate traces issued within the same clock tick.
func nextTie() string {
	tie := atomic.AddInt32(&traceTie, 1)
	b0 := traceIDABC[tie&0x3f]
	b1 := traceIDABC[-tie&0x3f]
	b2 := traceIDABC[(tie>>2)&0x3f]
	return string([]byte{b0, b1, b2})
}
