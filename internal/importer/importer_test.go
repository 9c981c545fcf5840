package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

func TestIsMboxSeparator(t *testing.T) {
	require.True(t, isMboxSeparator("From alice@example.com Mon Jan  1 00:00:00 2024\n"))
	require.False(t, isMboxSeparator(">From alice@example.com Mon Jan  1 00:00:00 2024\n"))
	require.False(t, isMboxSeparator("Subject: hi\n"))
}

func TestStream_Cancellation(t *testing.T) {
	mbox := "From a@x Mon Jan  1 00:00:00 2024\nSubject: x\n\nbody\n"
	_, err := Stream(context.Background(), strings.NewReader(mbox), "acct", "me@x", "Import", nil,
		provider.CancelFunc(func() bool { return true }), func(models.JobProgress) {})
	require.ErrorIs(t, err, provider.ErrCancelled)
}
