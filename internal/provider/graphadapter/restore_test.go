package graphadapter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressListToRecipients_Multiple(t *testing.T) {
	recipients := addressListToRecipients("Alice <alice@example.com>, bob@example.com")
	require.Len(t, recipients, 2)
	require.Equal(t, "Alice", recipients[0].EmailAddress.Name)
	require.Equal(t, "alice@example.com", recipients[0].EmailAddress.Address)
	require.Equal(t, "bob@example.com", recipients[1].EmailAddress.Address)
}

func TestAddressListToRecipients_Empty(t *testing.T) {
	require.Nil(t, addressListToRecipients(""))
}

func TestFormatRecipient(t *testing.T) {
	r := graphRecipient{EmailAddress: graphEmailAddress{Name: "Bob", Address: "bob@example.com"}}
	require.Equal(t, "Bob <bob@example.com>", formatRecipient(r))

	r2 := graphRecipient{EmailAddress: graphEmailAddress{Address: "bob@example.com"}}
	require.Equal(t, "bob@example.com", formatRecipient(r2))
}
