package mimebuild

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mail-archiver/mail-archiver/internal/provider"
)

func TestBuild_PlainBody(t *testing.T) {
	raw, err := Build(provider.RestoreMessage{
		Subject:   "hello",
		From:      "a@example.com",
		To:        "b@example.com",
		PlainBody: "hi there",
	})
	require.NoError(t, err)
	require.Contains(t, string(raw), "hi there")
	require.Contains(t, string(raw), "Subject: hello")
}

func TestBuild_PrefersOriginalBytes(t *testing.T) {
	raw, err := Build(provider.RestoreMessage{
		Subject:           "hello",
		PlainBody:         "capped",
		OriginalPlainBody: []byte("full original body"),
	})
	require.NoError(t, err)
	require.Contains(t, string(raw), "full original body")
	require.NotContains(t, string(raw), "capped")
}

func TestBracket(t *testing.T) {
	require.Equal(t, "<abc@x>", Bracket("abc@x"))
	require.Equal(t, "<abc@x>", Bracket("<abc@x>"))
	require.Equal(t, "", Bracket(""))
}
