package addressbook

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(`
- name: Bob
  phone_number: 555-1234
- name: "  "
  phone_number: "+1 555 0000"
- name: No Phone
`))
	require.Nil(t, err)

	assert.Equal(t, []Entry{
		{Name: "Bob", PhoneNumber: "555-1234"},
		{Name: "+1 555 0000", PhoneNumber: "+1 555 0000"},
	}, entries)
}

func TestParseContactsDocument(t *testing.T) {
	entries, err := Parse(strings.NewReader(`{"contacts": [{"name": "Ann", "phone_number": "555-9999"}]}`))
	require.Nil(t, err)

	assert.Equal(t, []Entry{{Name: "Ann", PhoneNumber: "555-9999"}}, entries)
}

func TestParseEmpty(t *testing.T) {
	entries, err := Parse(strings.NewReader("  \n"))
	require.Nil(t, err)
	assert.Empty(t, entries)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse(strings.NewReader("name: [unterminated"))
	assert.NotNil(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contacts.yml")
	require.Nil(t, os.WriteFile(path, []byte("- {name: Bob, phone_number: 555-1234}\n"), 0600))

	entries, err := FileSource{Path: path}.Entries(context.Background())
	require.Nil(t, err)
	assert.Equal(t, []Entry{{Name: "Bob", PhoneNumber: "555-1234"}}, entries)
}

func TestFileSourceMissingFile(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "missing.yml")}.Entries(context.Background())
	assert.NotNil(t, err)
	assert.False(t, errors.Is(err, ErrPermissionDenied))
}

func TestReaderSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReaderSource{Reader: strings.NewReader("[]")}.Entries(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
