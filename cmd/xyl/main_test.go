package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xylia-lang/xylia/pkg/vm"
)

// TestEndToEndFibonacci exercises the full pipeline (compile + run) the
// way `xyl run` drives it, without touching the filesystem or os.Exit.
func TestEndToEndFibonacci(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(".", &out, strings.NewReader(""))
	res := v.Interpret(`
func fib(n) {
  if (n < 2) { return n; }
  return fib(n - 1) + fib(n - 2);
}
println(fib(10));
`, "<fib>")
	require.Equal(t, vm.StatusOK, res.Status)
	assert.Equal(t, "55\n", out.String())
}

// TestEndToEndArgv exercises set_args/argv end to end.
func TestEndToEndArgv(t *testing.T) {
	var out bytes.Buffer
	v := vm.New(".", &out, strings.NewReader(""))
	v.SetArgs([]string{"one", "two"})
	res := v.Interpret(`
let a = argv();
println(len(a));
println(a[0]);
`, "<argv>")
	require.Equal(t, vm.StatusOK, res.Status)
	assert.Equal(t, "2\none\n", out.String())
}
