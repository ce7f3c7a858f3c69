package expressions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestEvaluateString(t *testing.T) {
	e := NewEvaluator()
	data := decode(t, `{"entry":{"medusa_id":"prod_1","id":42,"ratio":1.5,"missing":null}}`)

	tests := []struct {
		expression string
		expected   string
	}{
		{"entry.medusa_id", "prod_1"},
		{"entry.id", "42"},
		{"entry.ratio", "1.5"},
		{"entry.missing", ""},
		{"entry.nope", ""},
		{"entry.nope || entry.medusa_id", "prod_1"},
	}

	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			got, err := e.EvaluateString(tt.expression, data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluateStrings(t *testing.T) {
	e := NewEvaluator()
	data := decode(t, `{"list":["a"," b ","",3],"csv":"x, y ,,z","obj":{"k":1}}`)

	got, err := e.EvaluateStrings("list", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = e.EvaluateStrings("csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, got)

	got, err = e.EvaluateStrings("absent", data)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = e.EvaluateStrings("obj", data)
	assert.Error(t, err)
}

func TestInvalidExpression(t *testing.T) {
	e := NewEvaluator()
	assert.Error(t, e.Validate("entry.$bad"))
	_, err := e.Evaluate("entry.$bad", map[string]any{})
	assert.Error(t, err)
	assert.NoError(t, e.Validate("entry.medusa_id"))
}

func TestCompileCacheReuse(t *testing.T) {
	e := NewEvaluator()
	data := decode(t, `{"a":"1"}`)
	for i := 0; i < 3; i++ {
		got, err := e.EvaluateString("a", data)
		require.NoError(t, err)
		assert.Equal(t, "1", got)
	}
	assert.Len(t, e.cache, 1)
}
