package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const returnsThree = `
packages:
  - id: 0
    items:
      - id: 0
        callable:
          name: Main
          kind: operation
          input: 0
          output: "Int"
          body: 0
          span: {lo: 0, hi: 10}
    blocks:
      - id: 0
        stmts: [0]
        ty: "Int"
        span: {lo: 0, hi: 10}
    stmts:
      - id: 0
        kind: expr
        expr: 0
        span: {lo: 1, hi: 2}
    exprs:
      - id: 0
        kind: lit
        ty: Int
        span: {lo: 1, hi: 2}
        lit: {kind: int, int: 3}
      - id: 1
        kind: var
        ty: "(() => Int)"
        span: {lo: 3, hi: 4}
        res: {item: {package: 0, item: 0}}
      - id: 2
        kind: tuple
        ty: "()"
        span: {lo: 3, hi: 4}
      - id: 3
        kind: call
        ty: Int
        span: {lo: 3, hi: 4}
        exprs: [1, 2]
    pats:
      - id: 0
        kind: tuple
        ty: "()"
        span: {lo: 0, hi: 0}
entry:
  package: 0
  expr: 3
`

func writeTree(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestCompilePrintsProgram(t *testing.T) {
	path := writeTree(t, "main.yaml", returnsThree)
	var out bytes.Buffer

	require.NoError(t, compile([]string{path}, &out))

	text := out.String()
	assert.Contains(t, text, "name: __quantum__rt__int_record_output")
	assert.Contains(t, text, "Call id(1), args( Integer(3), Pointer, )")
	assert.Contains(t, text, "num_qubits: 0")
}

func TestCompileStatsAndMetrics(t *testing.T) {
	first := writeTree(t, "a.yaml", returnsThree)
	second := writeTree(t, "b.yaml", returnsThree)
	var out bytes.Buffer

	require.NoError(t, compile([]string{"-stats", "-metrics", first, second}, &out))

	text := out.String()
	assert.Contains(t, text, "; "+first)
	assert.Contains(t, text, "; "+second)
	assert.Contains(t, text, "Instructions")
	assert.Contains(t, text, "qirc_partial_eval_compilations_total{status=ok}")
}

func TestCompileErrors(t *testing.T) {
	var out bytes.Buffer
	assert.EqualError(t, compile(nil, &out), "no input file")

	err := compile([]string{filepath.Join(t.TempDir(), "missing.yaml")}, &out)
	assert.Error(t, err)

	cfg := writeTree(t, "qirc.yaml", "target:\n  capabilities: [warp]\n")
	err = compile([]string{"-config", cfg, writeTree(t, "main.yaml", returnsThree)}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target capability")
}
