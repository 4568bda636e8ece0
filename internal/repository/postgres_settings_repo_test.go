package repository

import (
	"testing"
)

// PostgresSettingsRepoはSettingsRepositoryインターフェースを満たすことを検証
func TestPostgresSettingsRepo_ImplementsInterface(t *testing.T) {
	var _ SettingsRepository = (*PostgresSettingsRepo)(nil)
}

// NewPostgresSettingsRepoが正しく初期化されることを検証
func TestNewPostgresSettingsRepo_Initializes(t *testing.T) {
	repo := NewPostgresSettingsRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
