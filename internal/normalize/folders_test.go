package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSentFolder_CaseAndScript(t *testing.T) {
	require.True(t, IsSentFolder("Sent Items"))
	require.True(t, IsSentFolder("GESENDETE OBJEKTE"))
	require.True(t, IsSentFolder("Gönderilmiş Öğeler"))
	require.False(t, IsSentFolder("INBOX"))
}

func TestIsDraftsFolder_CaseAndScript(t *testing.T) {
	require.True(t, IsDraftsFolder("Drafts"))
	require.True(t, IsDraftsFolder("TASLAKLAR"))
	require.False(t, IsDraftsFolder("Sent"))
}
