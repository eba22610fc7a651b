package google

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
)

const defaultAccount = "default"

// TokenStore persists the user's OAuth token in a local sqlite database.
// It implements TokenProvider. The schema is versioned through the
// db_version table so later releases can migrate in place.
type TokenStore struct {
	db      *sql.DB
	account string
}

// OpenTokenStore opens (and if necessary creates) the token database at
// the given path. Parent directories are created with owner-only
// permissions.
func OpenTokenStore(path string) (*TokenStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &TokenStore{db: db, account: defaultAccount}, nil
}

func migrate(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM db_version WHERE name='gridcal'").Scan(&version)
	if err != nil {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS db_version (
			name TEXT PRIMARY KEY,
			version INTEGER
		)`); err != nil {
			return fmt.Errorf("failed to create db_version table: %w", err)
		}
		if _, err := db.Exec(`INSERT INTO db_version (name, version) VALUES ('gridcal', 0)`); err != nil {
			return fmt.Errorf("failed to initialize db_version table: %w", err)
		}
		version = 0
	}

	if version == 0 {
		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS tokens (
			account_name TEXT PRIMARY KEY,
			token TEXT)`); err != nil {
			return fmt.Errorf("failed to create tokens table: %w", err)
		}
		if _, err := db.Exec(`UPDATE db_version SET version = 1 WHERE name = 'gridcal'`); err != nil {
			return fmt.Errorf("failed to update db_version table: %w", err)
		}
	}

	return nil
}

// Token retrieves the stored token, or ErrNoToken when absent.
func (s *TokenStore) Token(ctx context.Context) (*oauth2.Token, error) {
	var tokenJSON []byte
	err := s.db.QueryRowContext(ctx, "SELECT token FROM tokens WHERE account_name = ?", s.account).Scan(&tokenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// Save persists the token, replacing any previous one.
func (s *TokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = s.db.ExecContext(ctx, "INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", s.account, tokenJSON)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete removes the stored token. Deleting an absent token is not an
// error.
func (s *TokenStore) Delete(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE account_name = ?", s.account)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// HasToken reports whether a token is stored.
func (s *TokenStore) HasToken(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tokens WHERE account_name = ?", s.account).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query token: %w", err)
	}
	return count > 0, nil
}

// Close closes the underlying database.
func (s *TokenStore) Close() error {
	return s.db.Close()
}
