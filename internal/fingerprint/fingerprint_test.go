package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOf_UsesMessageID(t *testing.T) {
	got := Of("<a@x>", "f", "t", "s", time.Now())
	require.Equal(t, "a@x", got)
}

func TestOf_BracketAgnostic(t *testing.T) {
	bracketed := Of("<a@x>", "f", "t", "s", time.Now())
	unbracketed := Of("a@x", "f", "t", "s", time.Now())
	require.Equal(t, bracketed, unbracketed)
}

func TestOf_GeneratedIsDeterministic(t *testing.T) {
	sent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Of("", "from@x", "to@x", "subj", sent)
	b := Of("", "from@x", "to@x", "subj", sent)
	require.Equal(t, a, b)
	require.Contains(t, a, "generated-")
	require.Contains(t, a, "@mail-archiver.local")
}

func TestOf_GeneratedVariesWithInput(t *testing.T) {
	sent := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Of("", "from@x", "to@x", "subj1", sent)
	b := Of("", "from@x", "to@x", "subj2", sent)
	require.NotEqual(t, a, b)
}

func TestVariants(t *testing.T) {
	require.ElementsMatch(t, []string{"a@x", "<a@x>"}, Variants("<a@x>"))
	require.Nil(t, Variants(""))
}

func TestSecondaryMatch(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.True(t, SecondaryMatch("f", "t", "s", base, "f", "t", "s", base.Add(1500*time.Millisecond)))
	require.False(t, SecondaryMatch("f", "t", "s", base, "f", "t", "s", base.Add(3*time.Second)))
	require.False(t, SecondaryMatch("f", "t", "s", base, "f2", "t", "s", base))
}
