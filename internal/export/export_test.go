package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mail-archiver/mail-archiver/internal/models"
)

func sampleEmails() []models.ArchivedEmail {
	return []models.ArchivedEmail{
		{ID: "1", Subject: "Hello World", From: "a@example.com", To: "b@example.com", Body: "hi"},
		{ID: "2", Subject: "Hello World", From: "a@example.com", To: "b@example.com", Body: "hi again"},
	}
}

func TestBuild_EML_DedupesFilenames(t *testing.T) {
	stream, err := Build(sampleEmails(), FormatEML, "export")
	require.NoError(t, err)
	require.Equal(t, "export.zip", stream.Filename)

	var buf bytes.Buffer
	require.NoError(t, stream.Write(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "Hello World.eml", zr.File[0].Name)
	require.Equal(t, "Hello World_2.eml", zr.File[1].Name)
}

func TestBuild_Mbox_WritesEnvelopeLine(t *testing.T) {
	stream, err := Build(sampleEmails(), FormatMbox, "export")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, stream.Write(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	require.Equal(t, "export.mbox", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	defer rc.Close()
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Contains(t, string(content), "From a@example.com ")
}

func TestBuild_UnknownFormat(t *testing.T) {
	_, err := Build(nil, "pdf", "x")
	require.Error(t, err)
}
