package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/newsdeck/internal/model"
)

// PostgresSubscriptionRepoはSubscriptionRepositoryインターフェースを満たすことを検証
func TestPostgresSubscriptionRepo_ImplementsInterface(t *testing.T) {
	var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
}

// NewPostgresSubscriptionRepoが正しく初期化されることを検証
func TestNewPostgresSubscriptionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSubscriptionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Subscriptionモデルのフィールドが正しく構築されることを検証
func TestPostgresSubscriptionRepo_SubscriptionModel_Fields(t *testing.T) {
	now := time.Now()
	sub := &model.Subscription{
		ID:            "sub-id-1",
		UserID:        "user-id-1",
		SourceID:      "source-id-1",
		Enabled:       true,
		AutoTranslate: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if sub.UserID != "user-id-1" {
		t.Errorf("sub.UserID = %q, want %q", sub.UserID, "user-id-1")
	}
	if sub.SourceID != "source-id-1" {
		t.Errorf("sub.SourceID = %q, want %q", sub.SourceID, "source-id-1")
	}
	if !sub.Enabled {
		t.Error("sub.Enabled should be true")
	}
	if !sub.AutoTranslate {
		t.Error("sub.AutoTranslate should be true")
	}
}

// Subscriptionのフラグがデフォルトでfalseであることを検証
func TestPostgresSubscriptionRepo_SubscriptionModel_DefaultFlags(t *testing.T) {
	sub := &model.Subscription{
		ID:       "sub-id-2",
		UserID:   "user-id-1",
		SourceID: "source-id-1",
	}

	if sub.Enabled {
		t.Error("sub.Enabled should be false by default")
	}
	if sub.AutoTranslate {
		t.Error("sub.AutoTranslate should be false by default")
	}
}
