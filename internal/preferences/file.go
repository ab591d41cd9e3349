package preferences

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tashifkhan/MOOC-utils/internal/crypto"
)

// FileName is the preferences file inside the data directory
const FileName = "subscriptions.json"

// FileStorage implements Storage with a JSON file on local disk
type FileStorage struct {
	path      string
	encryptor *crypto.Encryptor
}

// NewFileStorage stores preferences in dataDir/subscriptions.json. A non-empty
// encryptionKey encrypts contact details.
func NewFileStorage(dataDir, encryptionKey string) (*FileStorage, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &FileStorage{
		path:      filepath.Join(dataDir, FileName),
		encryptor: crypto.NewEncryptor(encryptionKey),
	}, nil
}

// Path returns the file location
func (f *FileStorage) Path() string {
	return f.path
}

// Load reads preferences from disk. A missing file yields empty preferences.
func (f *FileStorage) Load(_ context.Context) (Preferences, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return NewPreferences(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading preferences: %w", err)
	}

	prefs, err := FromJSON(data)
	if err != nil {
		return nil, err
	}
	if err := open(f.encryptor, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// Save writes preferences atomically
func (f *FileStorage) Save(_ context.Context, prefs Preferences) error {
	out, err := sealed(f.encryptor, prefs)
	if err != nil {
		return err
	}

	data, err := out.ToJSON()
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replacing preferences: %w", err)
	}
	return nil
}
