package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromMIME_Basic(t *testing.T) {
	raw := "From: alice@example.com\r\n" +
		"To: bob@example.com\r\n" +
		"Subject: Hello\r\n" +
		"Message-Id: <a@x>\r\n" +
		"Date: Mon, 1 Jan 2024 10:00:00 +0000\r\n" +
		"Content-Type: text/plain\r\n\r\n" +
		"Hi there\r\n"

	d, err := FromMIME([]byte(raw), "INBOX", "me@example.com", time.Now())
	require.NoError(t, err)
	require.Equal(t, "a@x", d.Fingerprint)
	require.Equal(t, "Hello", d.Subject)
	require.Contains(t, d.Body, "Hi there")
}

func TestToArchivedEmail_CapsLongSubject(t *testing.T) {
	d := &Draft{
		Subject: strings.Repeat("x", 60*1024),
		Body:    "hi",
	}
	e, _ := d.ToArchivedEmail()
	require.LessOrEqual(t, len(e.Subject), 60*1024)
	require.Contains(t, e.Subject, "truncated")
}

func TestCapHTMLBody_PreservesImgTag(t *testing.T) {
	prefix := strings.Repeat("a", 1024*1024-20)
	html := "<html><body>" + prefix + `<img src="cid:foo">` + "</body></html>"
	cap := capHTMLBody(html)
	require.True(t, cap.WasTruncated)
	if strings.Contains(cap.Searchable, "<img") {
		require.Contains(t, cap.Searchable, `<img src="cid:foo">`)
	}
	require.Contains(t, cap.Searchable, "</body></html>")
}

func TestDetectDirection_SentFolder(t *testing.T) {
	require.True(t, DetectDirection("someone@else.com", "Sent Items", "me@example.com"))
	require.False(t, DetectDirection("someone@else.com", "Drafts", "me@example.com"))
	require.True(t, DetectDirection("me@example.com", "INBOX", "me@example.com"))
}
