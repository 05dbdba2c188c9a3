package database

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"ticketify/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

// PasswordFile is the administrative password document. It holds either a
// bcrypt hash or a plain password:
//
//	{"password_hash": "$2a$10$..."}
//	{"password": "..."}
//
// The file is read on every check so it can be rotated without a restart.
type PasswordFile struct {
	path string
}

type passwordDocument struct {
	Password     string `json:"password"`
	PasswordHash string `json:"password_hash"`
}

func NewPasswordFile(path string) *PasswordFile {
	return &PasswordFile{path: path}
}

func (p *PasswordFile) CheckPassword(ctx context.Context, password string) (bool, error) {
	body, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("%w: password file %s missing", domain.ErrConfig, p.path)
	}
	if err != nil {
		return false, fmt.Errorf("%w: read password file: %v", domain.ErrConfig, err)
	}

	var doc passwordDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return false, fmt.Errorf("%w: parse password file: %v", domain.ErrConfig, err)
	}

	if hash := strings.TrimSpace(doc.PasswordHash); hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
	}
	if doc.Password == "" {
		return false, fmt.Errorf("%w: password file has no password", domain.ErrConfig)
	}
	return subtle.ConstantTimeCompare([]byte(doc.Password), []byte(password)) == 1, nil
}

// HashPassword returns a bcrypt hash suitable for password_hash.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
