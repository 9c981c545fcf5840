package sync

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mail-archiver/mail-archiver/internal/models"
)

func TestExcludedFolder(t *testing.T) {
	account := &models.MailAccount{ExcludedFolders: "Junk, Trash"}
	require.True(t, excludedFolder(account, "trash"))
	require.True(t, excludedFolder(account, "Junk"))
	require.False(t, excludedFolder(account, "INBOX"))
}

func TestExcludedFolder_Empty(t *testing.T) {
	account := &models.MailAccount{}
	require.False(t, excludedFolder(account, "INBOX"))
}
