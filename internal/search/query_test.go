package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_BareWordsAndPhrase(t *testing.T) {
	terms := Parse(`subject:"urgent" from:alice phishing`)
	require.Len(t, terms, 3)
	require.Equal(t, KindFieldPhrase, terms[0].Kind)
	require.Equal(t, "subject", terms[0].Field)
	require.Equal(t, "urgent", terms[0].Value)

	require.Equal(t, KindFieldWord, terms[1].Kind)
	require.Equal(t, `"from"`, terms[1].Field)
	require.Equal(t, "alice", terms[1].Value)

	require.Equal(t, KindWord, terms[2].Kind)
	require.Equal(t, "phishing", terms[2].Value)
}

func TestParse_QuotedPhrase(t *testing.T) {
	terms := Parse(`"hello world" foo`)
	require.Len(t, terms, 2)
	require.Equal(t, KindPhrase, terms[0].Kind)
	require.Equal(t, "hello world", terms[0].Value)
	require.Equal(t, KindWord, terms[1].Kind)
}

func TestSanitizeForTsquery(t *testing.T) {
	require.Equal(t, "foo", sanitizeForTsquery("fo&o|!():*"))
}

func TestBuildOptimized_EmptyAllowedAccounts(t *testing.T) {
	built, err := BuildOptimized(Parse("hello"), Filters{AllowedAccountIDs: []string{}})
	require.NoError(t, err)
	require.Contains(t, built.RowsSQL, "1=0")
}

func TestBuildOptimized_BareWordsUseTsquery(t *testing.T) {
	built, err := BuildOptimized(Parse("hello world"), Filters{})
	require.NoError(t, err)
	require.Contains(t, built.RowsSQL, "to_tsquery")
	require.Contains(t, built.Args, "hello & world")
}

func TestBuildFallback_UsesILIKE(t *testing.T) {
	built, err := BuildFallback(Parse("hello"), Filters{})
	require.NoError(t, err)
	require.Contains(t, built.RowsSQL, "ILIKE")
}
