// SPDX-FileCopyrightText: Copyright 2025 The AgentPack Authors
// SPDX-License-Identifier: Apache-2.0

package cel_test

import (
	"errors"
	"testing"

	celgo "github.com/google/cel-go/cel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpack/agentpack-core/cel"
)

// newPackFilterEngine creates a CEL engine for testing pack-filter expressions.
// This demonstrates how consumers should configure the generic CEL engine.
func newPackFilterEngine() *cel.Engine {
	return cel.NewEngine(
		celgo.Variable("scope", celgo.StringType),
		celgo.Variable("name", celgo.StringType),
		celgo.Variable("format", celgo.StringType),
		celgo.Variable("tags", celgo.ListType(celgo.StringType)),
		celgo.Variable("extensions", celgo.MapType(celgo.StringType, celgo.DynType)),
	)
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()
	require.NotNil(t, engine)

	// Should be able to compile a valid expression
	expr, err := engine.Compile(`name == "react-conventions"`)
	require.NoError(t, err)
	require.NotNil(t, expr)
}

func TestEngine_Compile_ValidExpressions(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	tests := []struct {
		name string
		expr string
	}{
		{
			name: "string equality",
			expr: `name == "react-conventions"`,
		},
		{
			name: "membership in list",
			expr: `"frontend" in tags`,
		},
		{
			name: "key exists in map",
			expr: `"mcpServers" in extensions`,
		},
		{
			name: "nested access",
			expr: `extensions["cursor"]["globs"] == "*.tsx"`,
		},
		{
			name: "boolean and",
			expr: `"frontend" in tags && !("mcpServers" in extensions)`,
		},
		{
			name: "boolean or",
			expr: `format == "cursor" || format == "windsurf"`,
		},
		{
			name: "exists function",
			expr: `tags.exists(t, t in ["react", "vue"])`,
		},
		{
			name: "string starts with",
			expr: `name.startsWith("react-")`,
		},
		{
			name: "ternary expression",
			expr: `"mcpServers" in extensions ? "skill" : "rules"`,
		},
		{
			name: "true literal",
			expr: `true`,
		},
		{
			name: "false literal",
			expr: `false`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			expr, err := engine.Compile(tt.expr)
			require.NoError(t, err)
			require.NotNil(t, expr)
			assert.Equal(t, tt.expr, expr.Source())
		})
	}
}

func TestEngine_Compile_ParseErrors(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	tests := []struct {
		name string
		expr string
	}{
		{
			name: "unclosed bracket",
			expr: `extensions["cursor"`,
		},
		{
			name: "invalid operator",
			expr: `name === "react-conventions"`,
		},
		{
			name: "unclosed string",
			expr: `extensions["cursor] == "rules"`,
		},
		{
			name: "missing operand",
			expr: `name ==`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			expr, err := engine.Compile(tt.expr)
			require.Error(t, err)
			require.Nil(t, expr)

			var parseErr *cel.ParseError
			assert.True(t, errors.As(err, &parseErr), "expected ParseError, got %T", err)
		})
	}
}

func TestEngine_Compile_CheckErrors(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	tests := []struct {
		name string
		expr string
	}{
		{
			name: "undefined variable",
			expr: `undefined_var == "test"`,
		},
		{
			name: "undefined function",
			expr: `undefined_func(name)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			expr, err := engine.Compile(tt.expr)
			require.Error(t, err)
			require.Nil(t, expr)

			var checkErr *cel.CheckError
			assert.True(t, errors.As(err, &checkErr), "expected CheckError, got %T", err)
		})
	}
}

func TestEngine_Check(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	t.Run("valid expression", func(t *testing.T) {
		t.Parallel()
		err := engine.Check(`name == "react-conventions"`)
		require.NoError(t, err)
	})

	t.Run("invalid expression", func(t *testing.T) {
		t.Parallel()
		err := engine.Check(`extensions["cursor"`)
		require.Error(t, err)

		var parseErr *cel.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})
}

func TestCompiledExpression_Evaluate(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	tests := []struct {
		name     string
		expr     string
		vars     map[string]any
		expected any
	}{
		{
			name: "string equality true",
			expr: `name == "react-conventions"`,
			vars: map[string]any{
				"name": "react-conventions",
			},
			expected: true,
		},
		{
			name: "string equality false",
			expr: `name == "react-conventions"`,
			vars: map[string]any{
				"name": "vue-conventions",
			},
			expected: false,
		},
		{
			name: "membership in list true",
			expr: `"frontend" in tags`,
			vars: map[string]any{
				"tags": []string{"react", "frontend", "style"},
			},
			expected: true,
		},
		{
			name: "membership in list false",
			expr: `"frontend" in tags`,
			vars: map[string]any{
				"tags": []string{"backend", "api"},
			},
			expected: false,
		},
		{
			name: "key exists in map true",
			expr: `"mcpServers" in extensions`,
			vars: map[string]any{
				"extensions": map[string]any{
					"mcpServers": []any{
						map[string]any{"name": "github"},
					},
				},
			},
			expected: true,
		},
		{
			name: "key missing from map",
			expr: `"mcpServers" in extensions`,
			vars: map[string]any{
				"extensions": map[string]any{
					"cursor": map[string]any{"globs": "*.tsx"},
				},
			},
			expected: false,
		},
		{
			name: "complex boolean expression",
			expr: `"frontend" in tags && !("mcpServers" in extensions)`,
			vars: map[string]any{
				"tags":       []string{"frontend"},
				"extensions": map[string]any{},
			},
			expected: true,
		},
		{
			name: "complex boolean with servers present",
			expr: `"frontend" in tags && !("mcpServers" in extensions)`,
			vars: map[string]any{
				"tags": []string{"frontend"},
				"extensions": map[string]any{
					"mcpServers": []any{},
				},
			},
			expected: false,
		},
		{
			name: "ternary expression",
			expr: `"mcpServers" in extensions ? "skill" : "rules"`,
			vars: map[string]any{
				"extensions": map[string]any{
					"mcpServers": []any{},
				},
			},
			expected: "skill",
		},
		{
			name: "ternary expression rules only",
			expr: `"mcpServers" in extensions ? "skill" : "rules"`,
			vars: map[string]any{
				"extensions": map[string]any{},
			},
			expected: "rules",
		},
		{
			name:     "true literal",
			expr:     `true`,
			vars:     map[string]any{},
			expected: true,
		},
		{
			name:     "false literal",
			expr:     `false`,
			vars:     map[string]any{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expr, err := engine.Compile(tt.expr)
			require.NoError(t, err)

			result, err := expr.Evaluate(tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestCompiledExpression_EvaluateBool(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	t.Run("returns true", func(t *testing.T) {
		t.Parallel()

		expr, err := engine.Compile(`name == "react-conventions"`)
		require.NoError(t, err)

		ctx := map[string]any{"name": "react-conventions"}
		result, err := expr.EvaluateBool(ctx)
		require.NoError(t, err)
		assert.True(t, result)
	})

	t.Run("returns false", func(t *testing.T) {
		t.Parallel()

		expr, err := engine.Compile(`name == "react-conventions"`)
		require.NoError(t, err)

		ctx := map[string]any{"name": "vue-conventions"}
		result, err := expr.EvaluateBool(ctx)
		require.NoError(t, err)
		assert.False(t, result)
	})

	t.Run("error on non-bool result", func(t *testing.T) {
		t.Parallel()

		expr, err := engine.Compile(`name`)
		require.NoError(t, err)

		ctx := map[string]any{"name": "react-conventions"}
		_, err = expr.EvaluateBool(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, cel.ErrInvalidResult)
	})

	t.Run("evaluation error wraps ErrEvaluation", func(t *testing.T) {
		t.Parallel()

		// Compile an expression that accesses a nested key on a non-map value
		expr, err := engine.Compile(`extensions["missing"]["nested"]`)
		require.NoError(t, err)

		// Provide an empty extensions map so the nested access fails at runtime
		ctx := map[string]any{"extensions": map[string]any{}}
		_, err = expr.EvaluateBool(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, cel.ErrEvaluation)
	})
}

func TestParseError_Details(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	_, err := engine.Compile(`extensions["cursor"`)
	require.Error(t, err)

	var parseErr *cel.ParseError
	require.True(t, errors.As(err, &parseErr))

	// Should contain source and error details
	assert.Contains(t, parseErr.Error(), "parse")
	assert.Contains(t, parseErr.Source, `extensions["cursor"`)
	assert.NotEmpty(t, parseErr.Errors)
}

func TestCheckError_Details(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	_, err := engine.Compile(`undefined_var == "test"`)
	require.Error(t, err)

	var checkErr *cel.CheckError
	require.True(t, errors.As(err, &checkErr))

	// Should contain source and error details
	assert.Contains(t, checkErr.Error(), "check")
	assert.Contains(t, checkErr.Source, "undefined_var")
	assert.NotEmpty(t, checkErr.Errors)
}

func TestEngine_Concurrency(t *testing.T) {
	t.Parallel()

	engine := newPackFilterEngine()

	// Compile the expression once
	expr, err := engine.Compile(`"frontend" in tags`)
	require.NoError(t, err)

	// Evaluate concurrently
	const numGoroutines = 100
	results := make(chan bool, numGoroutines)
	errs := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			tags := []string{"backend"}
			if i%2 == 0 {
				tags = append(tags, "frontend")
			}

			ctx := map[string]any{
				"tags": tags,
			}

			result, err := expr.EvaluateBool(ctx)
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}(i)
	}

	// Collect results
	for i := 0; i < numGoroutines; i++ {
		select {
		case err := <-errs:
			t.Fatalf("unexpected error: %v", err)
		case result := <-results:
			// Even indices should have "frontend" and return true
			// We can't verify specific results without tracking indices
			_ = result
		}
	}
}
