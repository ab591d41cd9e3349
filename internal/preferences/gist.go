package preferences

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tashifkhan/MOOC-utils/internal/crypto"
)

const (
	// GistAPIURL is the GitHub gists endpoint
	GistAPIURL   = "https://api.github.com/gists"
	gistFilename = "subscriptions.json"
	timeout      = 15 * time.Second
)

type gistFile struct {
	Content string `json:"content"`
}

type gistPayload struct {
	Description string              `json:"description,omitempty"`
	Public      *bool               `json:"public,omitempty"`
	Files       map[string]gistFile `json:"files"`
}

type gistResponse struct {
	ID    string              `json:"id"`
	Files map[string]gistFile `json:"files"`
}

// GistStorage implements Storage using GitHub Gists
type GistStorage struct {
	gistID    string
	client    *resty.Client
	encryptor *crypto.Encryptor
}

func newGistClient(apiURL, githubToken string) *resty.Client {
	return resty.New().
		SetBaseURL(apiURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "token "+githubToken).
		SetHeader("Accept", "application/vnd.github.v3+json")
}

// NewGistStorage creates Gist-backed storage. A non-empty encryptionKey encrypts
// contact details before they are uploaded.
func NewGistStorage(gistID, githubToken, encryptionKey string) (*GistStorage, error) {
	if gistID == "" {
		return nil, fmt.Errorf("gist ID is required")
	}
	if githubToken == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	return &GistStorage{
		gistID:    gistID,
		client:    newGistClient(GistAPIURL, githubToken),
		encryptor: crypto.NewEncryptor(encryptionKey),
	}, nil
}

// WithAPIURL points the storage at a different gists endpoint
func (g *GistStorage) WithAPIURL(apiURL string) *GistStorage {
	g.client.SetBaseURL(apiURL)
	return g
}

// Load retrieves preferences from the Gist
func (g *GistStorage) Load(ctx context.Context) (Preferences, error) {
	var gist gistResponse
	res, err := g.client.R().
		SetContext(ctx).
		SetResult(&gist).
		Get("/" + g.gistID)
	if err != nil {
		return nil, fmt.Errorf("fetching gist: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		// Response bodies are left out of errors; they can echo credentials
		return nil, fmt.Errorf("GitHub API error (status %d)", res.StatusCode())
	}

	file, exists := gist.Files[gistFilename]
	if !exists {
		return NewPreferences(), nil
	}

	prefs, err := FromJSON([]byte(file.Content))
	if err != nil {
		return nil, fmt.Errorf("parsing preferences: %w", err)
	}
	if err := open(g.encryptor, prefs); err != nil {
		return nil, err
	}
	return prefs, nil
}

// Save updates the Gist with new preferences
func (g *GistStorage) Save(ctx context.Context, prefs Preferences) error {
	out, err := sealed(g.encryptor, prefs)
	if err != nil {
		return err
	}

	data, err := out.ToJSON()
	if err != nil {
		return fmt.Errorf("marshaling preferences: %w", err)
	}

	res, err := g.client.R().
		SetContext(ctx).
		SetBody(gistPayload{Files: map[string]gistFile{gistFilename: {Content: string(data)}}}).
		Patch("/" + g.gistID)
	if err != nil {
		return fmt.Errorf("updating gist: %w", err)
	}
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("GitHub API error (status %d)", res.StatusCode())
	}
	return nil
}

// CreateGist creates a new private Gist holding empty preferences and returns its ID
func CreateGist(ctx context.Context, apiURL, githubToken, description string) (string, error) {
	if githubToken == "" {
		return "", fmt.Errorf("GitHub token is required")
	}

	data, err := NewPreferences().ToJSON()
	if err != nil {
		return "", fmt.Errorf("marshaling initial preferences: %w", err)
	}

	private := false
	var gist gistResponse
	res, err := newGistClient(apiURL, githubToken).R().
		SetContext(ctx).
		SetBody(gistPayload{
			Description: description,
			Public:      &private,
			Files:       map[string]gistFile{gistFilename: {Content: string(data)}},
		}).
		SetResult(&gist).
		Post("")
	if err != nil {
		return "", fmt.Errorf("creating gist: %w", err)
	}
	if res.StatusCode() != http.StatusCreated {
		return "", fmt.Errorf("GitHub API error (status %d)", res.StatusCode())
	}
	return gist.ID, nil
}
