package provider

import (
	"fmt"

	"github.com/mail-archiver/mail-archiver/internal/models"
)

// Factory builds the right Adapter implementation for an account's
// ProviderKind (spec §9 "dynamic dispatch between providers"), following the
// CreateProvider-switch pattern for constructor-closure-based provider
// selection.
type Factory struct {
	newIMAP  func(*models.MailAccount) Adapter
	newGraph func(*models.MailAccount) Adapter
}

func NewFactory(newIMAP, newGraph func(*models.MailAccount) Adapter) *Factory {
	return &Factory{newIMAP: newIMAP, newGraph: newGraph}
}

func (f *Factory) Build(account *models.MailAccount) (Adapter, error) {
	switch account.Provider {
	case models.ProviderIMAP:
		return f.newIMAP(account), nil
	case models.ProviderM365:
		return f.newGraph(account), nil
	default:
		return nil, fmt.Errorf("provider: unsupported provider kind %q", account.Provider)
	}
}
