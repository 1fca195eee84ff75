package addressbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrPermissionDenied is returned when the address book exists but can't be read
var ErrPermissionDenied = errors.New("address book permission denied")

// Entry is a name & phone number pair read from an address book
type Entry struct {
	Name        string `yaml:"name" json:"name"`
	PhoneNumber string `yaml:"phone_number" json:"phone_number"`
}

// Source is anything that can list address book entries e.g. an exported
// phone contacts file or an upload
type Source interface {
	Entries(ctx context.Context) ([]Entry, error)
}

// Parse reads a YAML (or JSON) list of entries. A document with a top level
// 'contacts' key is also accepted. Entries without a phone number are dropped.
func Parse(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		var book struct {
			Contacts []Entry `yaml:"contacts"`
		}
		if bookErr := yaml.Unmarshal(data, &book); bookErr != nil {
			return nil, fmt.Errorf("invalid address book: %v", err)
		}
		entries = book.Contacts
	}

	usable := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Name = strings.TrimSpace(entry.Name)
		entry.PhoneNumber = strings.TrimSpace(entry.PhoneNumber)
		if entry.PhoneNumber == "" {
			continue
		}
		if entry.Name == "" {
			entry.Name = entry.PhoneNumber
		}
		usable = append(usable, entry)
	}

	return usable, nil
}

// FileSource reads entries from an address book file on disk
type FileSource struct {
	Path string
}

func (src FileSource) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(src.Path)
	if errors.Is(err, fs.ErrPermission) {
		return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// ReaderSource reads entries once from an uploaded address book
type ReaderSource struct {
	Reader io.Reader
}

func (src ReaderSource) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Parse(src.Reader)
}

type StaticSource []Entry

func (src StaticSource) Entries(ctx context.Context) ([]Entry, error) {
	return append([]Entry(nil), src...), nil
}
