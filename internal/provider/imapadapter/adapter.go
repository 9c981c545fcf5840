// Package imapadapter implements the provider.Adapter contract over IMAP
// (spec §4.D). Connection handling follows an EmailService-style client
// (DialTLS, client.Client, UidSearch/UidFetch chunking, Idle usage)
// generalized from a single-mailbox watcher into a full multi-folder
// archiving client.
package imapadapter

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mail-archiver/mail-archiver/internal/logging"
	"github.com/mail-archiver/mail-archiver/internal/models"
	"github.com/mail-archiver/mail-archiver/internal/provider"
)

const fetchChunkSize = 50

// Adapter is a provider.Adapter backed by one lazily-established IMAP connection.
type Adapter struct {
	account              *models.MailAccount
	ignoreSelfSignedCert bool

	mu sync.Mutex
	c  *client.Client

	log *logging.Logger
}

func New(account *models.MailAccount, ignoreSelfSignedCert bool) *Adapter {
	return &Adapter{account: account, ignoreSelfSignedCert: ignoreSelfSignedCert, log: logging.New("imap")}
}

// connect dials, falling back from implicit TLS to STARTTLS when the server
// closes the TLS handshake (spec §4.D "falls back to STARTTLS").
func (a *Adapter) connect(ctx context.Context) (*client.Client, error) {
	addr := net.JoinHostPort(a.account.ServerHost, fmt.Sprintf("%d", a.account.ServerPort))

	var c *client.Client
	var err error
	if a.account.UseTLS {
		c, err = client.DialTLS(addr, &tls.Config{
			ServerName:         a.account.ServerHost,
			InsecureSkipVerify: a.ignoreSelfSignedCert,
		})
		if err != nil {
			c, err = client.Dial(addr)
			if err != nil {
				return nil, provider.Wrap(provider.KindTransient, fmt.Errorf("imap dial %s: %w", addr, err))
			}
			if starttlsErr := c.StartTLS(&tls.Config{
				ServerName:         a.account.ServerHost,
				InsecureSkipVerify: a.ignoreSelfSignedCert,
			}); starttlsErr != nil {
				c.Logout()
				return nil, provider.Wrap(provider.KindTransient, fmt.Errorf("imap starttls fallback %s: %w", addr, starttlsErr))
			}
		}
	} else {
		c, err = client.Dial(addr)
		if err != nil {
			return nil, provider.Wrap(provider.KindTransient, fmt.Errorf("imap dial %s: %w", addr, err))
		}
	}

	if err := c.Login(a.account.Username, a.account.Password); err != nil {
		c.Logout()
		return nil, provider.Wrap(provider.KindPermanentPerMessage, fmt.Errorf("imap login %s: %w", a.account.Username, err))
	}
	return c, nil
}

// client returns the held connection, establishing one on first use.
func (a *Adapter) client(ctx context.Context) (*client.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c != nil {
		return a.c, nil
	}
	c, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}
	a.c = c
	return c, nil
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	return c.Logout()
}

// ListFolders enumerates every folder via LIST "" "*", filters out \Noselect
// and \NonExistent mailboxes, and always includes INBOX (spec §4.D step 4).
func (a *Adapter) ListFolders(ctx context.Context) ([]provider.Folder, error) {
	c, err := a.client(ctx)
	if err != nil {
		return nil, err
	}

	mailboxes := make(chan *imap.MailboxInfo, 32)
	done := make(chan error, 1)
	go func() { done <- c.List("", "*", mailboxes) }()

	seen := make(map[string]bool)
	var folders []provider.Folder
	for mbox := range mailboxes {
		if mbox == nil {
			continue
		}
		skip := false
		for _, attr := range mbox.Attributes {
			if attr == imap.NoSelectAttr || attr == `\NonExistent` {
				skip = true
			}
		}
		if skip || seen[mbox.Name] {
			continue
		}
		seen[mbox.Name] = true
		folders = append(folders, provider.Folder{Name: mbox.Name, FullPath: mbox.Name, Selectable: true})
	}
	if err := <-done; err != nil {
		return nil, provider.Wrap(provider.KindProviderMisbehavior, fmt.Errorf("imap list: %w", err))
	}
	if !seen["INBOX"] {
		folders = append([]provider.Folder{{Name: "INBOX", FullPath: "INBOX", Selectable: true}}, folders...)
	}
	return folders, nil
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.c == nil {
		return nil
	}
	err := a.c.Logout()
	a.c = nil
	return err
}
