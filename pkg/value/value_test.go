package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalsey(t *testing.T) {
	assert.True(t, Nil.IsFalsey())
	assert.True(t, False.IsFalsey())
	assert.False(t, True.IsFalsey())
	assert.False(t, Number(0).IsFalsey())
	assert.False(t, FromObj(&String{Chars: ""}).IsFalsey())
}

func TestEqualNumberFloatPromotion(t *testing.T) {
	assert.True(t, Equal(Number(3), Float(3.0)))
	assert.True(t, Equal(Float(3.0), Number(3)))
	assert.False(t, Equal(Number(3), Float(3.1)))
	assert.False(t, Equal(Number(3), Bool(true)))
}

func TestEqualStringsByValueWhenNotInterned(t *testing.T) {
	a := &String{Chars: "hi", Interned: false}
	b := &String{Chars: "hi", Interned: false}
	assert.True(t, Equal(FromObj(a), FromObj(b)))

	c := &String{Chars: "hi", Interned: true}
	d := &String{Chars: "hi", Interned: true}
	assert.False(t, Equal(FromObj(c), FromObj(d)), "distinct interned instances are not equal by identity")
	assert.True(t, Equal(FromObj(c), FromObj(c)))
}

func TestEqualListsStructural(t *testing.T) {
	a := FromObj(&List{Values: []Value{Number(1), Number(2)}})
	b := FromObj(&List{Values: []Value{Number(1), Number(2)}})
	c := FromObj(&List{Values: []Value{Number(1), Number(3)}})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "number", TypeName(Number(1)))
	assert.Equal(t, "float", TypeName(Float(1.5)))
	assert.Equal(t, "bool", TypeName(True))
	assert.Equal(t, "nil", TypeName(Nil))
	assert.Equal(t, "string", TypeName(FromObj(&String{Chars: "x"})))

	class := &Class{Name: &String{Chars: "Dog"}}
	inst := &Instance{Class: class}
	assert.Equal(t, "Dog", TypeName(FromObj(inst)))
}

func TestToStringLiterallyQuotesStrings(t *testing.T) {
	s := FromObj(&String{Chars: "hi"})
	assert.Equal(t, "hi", ToString(s, false))
	assert.Equal(t, `"hi"`, ToString(s, true))
}

func TestToStringSequences(t *testing.T) {
	lst := FromObj(&List{Values: []Value{Number(1), Number(2)}})
	assert.Equal(t, "[1, 2]", ToString(lst, false))

	vec := &Vector{Values: []Value{Number(1), Number(2), Number(3)}, Count: 2}
	assert.Equal(t, "{1, 2}", ToString(FromObj(vec), false))
}
