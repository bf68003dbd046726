package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	data, err := Marshal(map[string]any{
		"zebra": "z",
		"apple": 1,
		"mango": true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"apple":1,"mango":true,"zebra":"z"}`, string(data))
}

func TestMarshalNoHTMLEscaping(t *testing.T) {
	data, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalNFCNormalization(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed form.
	decomposed, err := Marshal("e\u0301")
	require.NoError(t, err)
	composed, err := Marshal("\u00e9")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalLineSeparatorsStayLiteral(t *testing.T) {
	data, err := Marshal("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	data, err = Marshal(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(data))
}

func TestMarshalRejectsFloatsAndNull(t *testing.T) {
	_, err := Marshal(map[string]any{"qty": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")

	_, err = Marshal([]any{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestMarshalStringSlice(t *testing.T) {
	data, err := Marshal(map[string]any{"designators": []string{"X1", "X2"}})
	require.NoError(t, err)
	assert.Equal(t, `{"designators":["X1","X2"]}`, string(data))
}

func TestSortedKeysUTF16Order(t *testing.T) {
	keys := SortedKeys(map[string]any{"a": 1, "A": 1, "aa": 1, "AA": 1})
	assert.Equal(t, []string{"A", "AA", "a", "aa"}, keys)

	// U+1F600 encodes as surrogates D83D DE00, which sort before U+FB01.
	keys = SortedKeys(map[string]any{"\uFB01": 1, "\U0001F600": 1})
	assert.Equal(t, []string{"\U0001F600", "\uFB01"}, keys)
}

func TestFingerprintStableAcrossMapOrder(t *testing.T) {
	a := MustFingerprint(DomainBOMEntry, map[string]any{"description": "Test", "unit": ""})
	b := MustFingerprint(DomainBOMEntry, map[string]any{"unit": "", "description": "Test"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestFingerprintDomainSeparation(t *testing.T) {
	v := map[string]any{"description": "Test"}
	assert.NotEqual(t,
		MustFingerprint(DomainBOMEntry, v),
		MustFingerprint(DomainBuild, v))
}
