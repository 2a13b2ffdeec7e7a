package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/logging"
	"github.com/apetrenko/filevault/internal/server/auth"
	"github.com/apetrenko/filevault/internal/server/config"
	"github.com/apetrenko/filevault/internal/server/models"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }

type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	lastURL string
	err     error
}

func (f *fakeMailer) SendVerification(ctx context.Context, to, username, verificationURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	f.lastURL = verificationURL
	return nil
}

func userTestConfig() *config.Config {
	return &config.Config{
		PublicBaseURL:       "http://localhost:8080",
		SecretKey:           "testsecret",
		AccessTokenValidity: 30 * time.Minute,
	}
}

func TestSignup(t *testing.T) {
	db, mock := newSQLMockDB(t)
	users := newFakeUsersRepo()
	mailer := &fakeMailer{}
	s := NewUserService(db, &fakeRepoManager{users: users}, mailer, nopLogger{}, userTestConfig())

	mock.ExpectBegin()
	mock.ExpectCommit()

	user, err := s.Signup(context.Background(), "alice", "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Signup error: %v", err)
	}
	if user.ID == 0 {
		t.Fatal("expected assigned user id")
	}
	if user.Role != models.RoleClient {
		t.Fatalf("role = %q, want %q", user.Role, models.RoleClient)
	}
	if user.Verified {
		t.Fatal("new signup must not be verified")
	}
	if user.VerificationToken == "" {
		t.Fatal("expected verification token")
	}
	if !auth.VerifyPassword("s3cret", user.PasswordHash) {
		t.Fatal("stored hash does not verify the password")
	}

	if len(mailer.sent) != 1 || mailer.sent[0] != "alice@example.com" {
		t.Fatalf("mail sent to %v, want [alice@example.com]", mailer.sent)
	}
	if !strings.Contains(mailer.lastURL, "/verify-email?token=") {
		t.Fatalf("verification URL %q missing token path", mailer.lastURL)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet db expectations: %v", err)
	}
}

func TestSignupDuplicate(t *testing.T) {
	db, mock := newSQLMockDB(t)
	users := newFakeUsersRepo()
	users.byName["alice"] = &models.User{ID: 1, Username: "alice", Email: "alice@example.com"}
	s := NewUserService(db, &fakeRepoManager{users: users}, &fakeMailer{}, nopLogger{}, userTestConfig())

	tests := []struct {
		name     string
		username string
		email    string
		want     error
	}{
		{"email taken", "bob", "alice@example.com", common.ErrorEmailTaken},
		{"username taken", "alice", "bob@example.com", common.ErrorUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectBegin()
			mock.ExpectRollback()

			if _, err := s.Signup(context.Background(), tt.username, tt.email, "s3cret"); !errors.Is(err, tt.want) {
				t.Fatalf("Signup error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet db expectations: %v", err)
	}
}

func TestSignupMailFailureIsNotFatal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mailer := &fakeMailer{err: errors.New("smtp down")}
	s := NewUserService(db, &fakeRepoManager{users: newFakeUsersRepo()}, mailer, nopLogger{}, userTestConfig())

	mock.ExpectBegin()
	mock.ExpectCommit()

	if _, err := s.Signup(context.Background(), "alice", "alice@example.com", "s3cret"); err != nil {
		t.Fatalf("Signup error: %v", err)
	}
}

func TestVerifyEmail(t *testing.T) {
	db, _ := newSQLMockDB(t)
	users := newFakeUsersRepo()
	users.byName["alice"] = &models.User{
		ID: 1, Username: "alice", Role: models.RoleClient, VerificationToken: "tok123",
	}
	s := NewUserService(db, &fakeRepoManager{users: users}, &fakeMailer{}, nopLogger{}, userTestConfig())
	ctx := context.Background()

	if err := s.VerifyEmail(ctx, "tok123"); err != nil {
		t.Fatalf("VerifyEmail error: %v", err)
	}
	if !users.byName["alice"].Verified {
		t.Fatal("user not marked verified")
	}

	// Token is single-use: it is cleared on verification.
	if err := s.VerifyEmail(ctx, "tok123"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("second VerifyEmail error = %v, want ErrInvalidToken", err)
	}

	if err := s.VerifyEmail(ctx, "nosuchtoken"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("VerifyEmail error = %v, want ErrInvalidToken", err)
	}
}

func TestLogin(t *testing.T) {
	db, _ := newSQLMockDB(t)
	users := newFakeUsersRepo()

	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	users.byName["ops1"] = &models.User{ID: 1, Username: "ops1", PasswordHash: hash, Role: models.RoleOps, Verified: true}
	users.byName["alice"] = &models.User{ID: 2, Username: "alice", PasswordHash: hash, Role: models.RoleClient, Verified: true}
	users.byName["bob"] = &models.User{ID: 3, Username: "bob", PasswordHash: hash, Role: models.RoleClient, Verified: false}

	cfg := userTestConfig()
	s := NewUserService(db, &fakeRepoManager{users: users}, &fakeMailer{}, nopLogger{}, cfg)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		role     string
		wantErr  error
	}{
		{"ops ok", "ops1", "s3cret", models.RoleOps, nil},
		{"client ok", "alice", "s3cret", models.RoleClient, nil},
		{"unknown user", "ghost", "s3cret", models.RoleClient, common.ErrorUnauthorized},
		{"wrong password", "alice", "wrong", models.RoleClient, common.ErrorUnauthorized},
		{"client at ops door", "alice", "s3cret", models.RoleOps, common.ErrorForbidden},
		{"ops at client door", "ops1", "s3cret", models.RoleClient, common.ErrorForbidden},
		{"unverified client", "bob", "s3cret", models.RoleClient, common.ErrorNotVerified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := s.Login(ctx, tt.username, tt.password, tt.role)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login error: %v", err)
			}
			subject, err := auth.GetSubjectFromToken(token, []byte(cfg.SecretKey))
			if err != nil {
				t.Fatalf("GetSubjectFromToken error: %v", err)
			}
			if subject != tt.username {
				t.Fatalf("token subject = %q, want %q", subject, tt.username)
			}
		})
	}
}

func TestEnsureOpsUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	users := newFakeUsersRepo()
	s := NewUserService(db, &fakeRepoManager{users: users}, &fakeMailer{}, nopLogger{}, userTestConfig())
	ctx := context.Background()

	user, created, err := s.EnsureOpsUser(ctx, "ops_admin", "ops@example.com", "changeme")
	if err != nil {
		t.Fatalf("EnsureOpsUser error: %v", err)
	}
	if !created {
		t.Fatal("expected user to be created")
	}
	if user.Role != models.RoleOps || !user.Verified {
		t.Fatalf("ops user = %+v, want ops role and verified", user)
	}

	again, created, err := s.EnsureOpsUser(ctx, "ops_admin", "ops@example.com", "changeme")
	if err != nil {
		t.Fatalf("EnsureOpsUser error: %v", err)
	}
	if created {
		t.Fatal("second call must not create")
	}
	if again.ID != user.ID {
		t.Fatalf("second call returned user %d, want %d", again.ID, user.ID)
	}
}
