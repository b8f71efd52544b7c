package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(src string) []Token {
	sc := New(src)
	var toks []Token
	for {
		tok := sc.Next()
		toks = append(toks, tok)
		if tok.Kind == TokEOF || tok.Kind == TokError {
			break
		}
	}
	return toks
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll("( ) { } [ ] , . .. : :: ; - + / * % ^ | & ~ ! != = == > >= < <= && || << >>")
	kinds := make([]Kind, 0, len(toks)-1)
	for _, tok := range toks[:len(toks)-1] {
		kinds = append(kinds, tok.Kind)
	}
	want := []Kind{
		TokLParen, TokRParen, TokLBrace, TokRBrace, TokLBracket, TokRBracket,
		TokComma, TokDot, TokDotDot, TokColon, TokColonColon, TokSemicolon,
		TokMinus, TokPlus, TokSlash, TokStar, TokPercent, TokCaret, TokPipe,
		TokAmp, TokTilde, TokBang, TokBangEq, TokEq, TokEqEq, TokGreater,
		TokGreaterEq, TokLess, TokLessEq, TokAnd, TokOr, TokShl, TokShr,
	}
	assert.Equal(t, want, kinds)
}

func TestScanKeywords(t *testing.T) {
	toks := scanAll("class func let self super operator unary true false nil")
	for i, kind := range []Kind{
		TokClass, TokFunc, TokLet, TokSelf, TokSuper, TokOperator,
		TokUnary, TokTrue, TokFalse, TokNil,
	} {
		assert.Equal(t, kind, toks[i].Kind, "token %d (%q)", i, toks[i].Lexeme)
	}
}

func TestScanIdentifierNotKeywordPrefix(t *testing.T) {
	toks := scanAll("classroom")
	require.Len(t, toks, 2) // identifier + EOF
	assert.Equal(t, TokIdentifier, toks[0].Kind)
	assert.Equal(t, "classroom", toks[0].Lexeme)
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll("42 3.14 0")
	require.GreaterOrEqual(t, len(toks), 3)
	assert.Equal(t, TokInteger, toks[0].Kind)
	assert.Equal(t, TokFloat, toks[1].Kind)
	assert.Equal(t, TokInteger, toks[2].Kind)
}

func TestScanStringLiteralDecodesEscapes(t *testing.T) {
	toks := scanAll(`"hi\n\"there\""`)
	require.Equal(t, TokString, toks[0].Kind)
	assert.Equal(t, "hi\n\"there\"", toks[0].Literal)
}

func TestScanTracksRowAndCol(t *testing.T) {
	toks := scanAll("a\nb")
	require.GreaterOrEqual(t, len(toks), 2)
	assert.Equal(t, 1, toks[0].Row)
	assert.Equal(t, 2, toks[1].Row)
}

func TestScanSkipsComments(t *testing.T) {
	toks := scanAll("-- a comment\nlet")
	require.GreaterOrEqual(t, len(toks), 1)
	assert.Equal(t, TokLet, toks[0].Kind)
}

func TestScanUnterminatedStringIsError(t *testing.T) {
	toks := scanAll(`"unterminated`)
	assert.Equal(t, TokError, toks[len(toks)-1].Kind)
}
