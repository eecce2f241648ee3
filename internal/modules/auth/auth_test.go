package auth

import (
	"errors"
	"testing"

	"github.com/foliohq/core/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTest(t *testing.T) (*Service, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&models.UserModel{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return NewService(gdb, zap.NewNop()), func() {
		gdb.Exec("DELETE FROM users")
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func TestRegisterOnce(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	u, err := svc.Register(&RegisterDTO{Username: "owner", Password: "hunter42"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if u.Password == "hunter42" {
		t.Fatal("password stored in plain text")
	}
	if u.Name != "owner" {
		t.Fatalf("name should default to username, got %q", u.Name)
	}

	if _, err := svc.Register(&RegisterDTO{Username: "second", Password: "hunter42"}); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("got %v, want already-registered", err)
	}
}

func TestLogin(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	if _, err := svc.Register(&RegisterDTO{Username: "owner", Password: "hunter42"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, u, err := svc.Login("owner", "hunter42", "203.0.113.9")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if u.LastLoginIP != "203.0.113.9" || u.LastLoginTime == nil {
		t.Fatalf("last-login not recorded: %+v", u)
	}

	if _, _, err := svc.Login("owner", "wrong", ""); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("got %v, want bad credentials", err)
	}
	if _, _, err := svc.Login("ghost", "hunter42", ""); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown user must yield the same error, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, cleanup := setupTest(t)
	defer cleanup()

	u, err := svc.Register(&RegisterDTO{Username: "owner", Password: "oldpass1"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(u.ID, "wrong", "newpass1"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("got %v, want bad credentials", err)
	}
	if err := svc.ChangePassword(u.ID, "oldpass1", "newpass1"); err != nil {
		t.Fatalf("change failed: %v", err)
	}
	if _, _, err := svc.Login("owner", "newpass1", ""); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, _, err := svc.Login("owner", "oldpass1", ""); !errors.Is(err, ErrBadCredentials) {
		t.Fatal("old password must stop working")
	}
}
