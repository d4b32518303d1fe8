package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/huangchenwei1/Puzle-Read/internal/model"
	"github.com/huangchenwei1/Puzle-Read/internal/repository"
	"github.com/huangchenwei1/Puzle-Read/internal/repository/repotest"

	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(repotest.NewDB(t))

	u := &model.User{UserName: "reader", Password: "hash", UserRole: model.RoleUser}
	if err := repo.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("id not assigned")
	}

	exists, err := repo.ExistsByUsername(ctx, "reader")
	if err != nil || !exists {
		t.Errorf("ExistsByUsername = %v, %v", exists, err)
	}
	if err := repo.Create(ctx, &model.User{UserName: "reader", Password: "x"}); err == nil {
		t.Error("duplicate username accepted")
	}

	if err := repo.SetRole(ctx, u.ID, model.RoleAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	got, err := repo.GetByUsername(ctx, "reader")
	if err != nil || got.UserRole != model.RoleAdmin {
		t.Errorf("GetByUsername = %+v, %v", got, err)
	}

	if _, err := repo.GetByID(ctx, 999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("missing user err = %v", err)
	}
}
