package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn    func(ctx context.Context, email string) (*model.User, error)
	createWithSeedFn func(ctx context.Context, user *model.User, seeds []*model.Transaction) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithSeed(ctx context.Context, user *model.User, seeds []*model.Transaction) error {
	if m.createWithSeedFn != nil {
		return m.createWithSeedFn(ctx, user, seeds)
	}
	return nil
}

type mockIssuer struct {
	issueFn func(userID string) (string, error)
}

func (m *mockIssuer) Issue(userID string) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(userID)
	}
	return "test-token", nil
}

func newTestService(repo repository.UserRepository, issuer TokenIssuer) *Service {
	return NewService(repo, issuer, nil, ServiceConfig{BcryptCost: bcrypt.MinCost})
}

// --- テスト ---

// 登録成功時にユーザー・初期データ・トークンが正しく生成されることを検証
func TestService_Register_CreatesUserWithSeedData(t *testing.T) {
	var createdUser *model.User
	var createdSeeds []*model.Transaction

	repo := &mockUserRepo{
		createWithSeedFn: func(ctx context.Context, user *model.User, seeds []*model.Transaction) error {
			createdUser = user
			createdSeeds = seeds
			return nil
		},
	}
	svc := newTestService(repo, &mockIssuer{})

	result, err := svc.Register(context.Background(), "Ann", "Lee", "ann@x.com", "secret1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if result.Token != "test-token" {
		t.Errorf("token = %q, want %q", result.Token, "test-token")
	}
	if result.User.Email != "ann@x.com" {
		t.Errorf("user email = %q, want %q", result.User.Email, "ann@x.com")
	}
	if result.User.ID == "" {
		t.Error("expected non-empty user ID")
	}

	if createdUser == nil {
		t.Fatal("expected CreateWithSeed to be called")
	}
	if createdUser.PasswordHash == "secret1" {
		t.Error("password must not be stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte("secret1")); err != nil {
		t.Error("stored hash does not match the raw password")
	}

	// 初期データ: 収入2件（Salary 8000、Bonus 2000）と支出2件（Food 400、Transport 150）
	if len(createdSeeds) != 4 {
		t.Fatalf("seed count = %d, want 4", len(createdSeeds))
	}

	type seedKey struct {
		kind     model.TransactionKind
		category string
		amount   float64
	}
	want := map[seedKey]string{
		{model.KindIncome, "Salary", 8000}:    "",
		{model.KindIncome, "Bonus", 2000}:     "",
		{model.KindExpense, "Food", 400}:      "Lunch at cafe",
		{model.KindExpense, "Transport", 150}: "Metro ride",
	}
	for _, seed := range createdSeeds {
		if seed.UserID != createdUser.ID {
			t.Errorf("seed owner = %q, want %q", seed.UserID, createdUser.ID)
		}
		if seed.Date.IsZero() {
			t.Error("seed date must be set")
		}
		desc, ok := want[seedKey{seed.Kind, seed.Category, seed.Amount}]
		if !ok {
			t.Errorf("unexpected seed: %s %s %v", seed.Kind, seed.Category, seed.Amount)
			continue
		}
		if seed.Description != desc {
			t.Errorf("seed %s description = %q, want %q", seed.Category, seed.Description, desc)
		}
		delete(want, seedKey{seed.Kind, seed.Category, seed.Amount})
	}
	if len(want) != 0 {
		t.Errorf("missing seeds: %v", want)
	}
}

// 必須フィールド欠落時にVALIDATION_ERRORになることを検証
func TestService_Register_MissingFields(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockIssuer{})

	tests := []struct {
		name                                  string
		firstname, lastname, email, password string
	}{
		{"firstname欠落", "", "Lee", "ann@x.com", "secret1"},
		{"lastname欠落", "Ann", "", "ann@x.com", "secret1"},
		{"email欠落", "Ann", "Lee", "", "secret1"},
		{"password欠落", "Ann", "Lee", "ann@x.com", ""},
		{"空白のみのfirstname", "   ", "Lee", "ann@x.com", "secret1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.firstname, tt.lastname, tt.email, tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
		})
	}
}

// 登録済みメールアドレスでの登録がDUPLICATE_EMAILになることを検証
func TestService_Register_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := newTestService(repo, &mockIssuer{})

	_, err := svc.Register(context.Background(), "Ann", "Lee", "ann@x.com", "secret1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateEmail)
	}
}

// FindByEmail通過後の一意制約違反（同時登録の競合）もDUPLICATE_EMAILになることを検証
func TestService_Register_DuplicateEmailRace(t *testing.T) {
	repo := &mockUserRepo{
		createWithSeedFn: func(ctx context.Context, user *model.User, seeds []*model.Transaction) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(repo, &mockIssuer{})

	_, err := svc.Register(context.Background(), "Ann", "Lee", "ann@x.com", "secret1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateEmail)
	}
}

// 初期データ挿入失敗時に登録全体が失敗し、トークンが発行されないことを検証
func TestService_Register_SeedFailureRollsBack(t *testing.T) {
	issued := false
	repo := &mockUserRepo{
		createWithSeedFn: func(ctx context.Context, user *model.User, seeds []*model.Transaction) error {
			return errors.New("seed insert failed")
		},
	}
	issuer := &mockIssuer{
		issueFn: func(userID string) (string, error) {
			issued = true
			return "token", nil
		},
	}
	svc := newTestService(repo, issuer)

	_, err := svc.Register(context.Background(), "Ann", "Lee", "ann@x.com", "secret1")
	if err == nil {
		t.Fatal("expected error when seeding fails, got nil")
	}
	if issued {
		t.Error("token must not be issued when registration fails")
	}
}

// ログイン成功時にトークンと公開ユーザービューが返ることを検証
func TestService_Login_Success(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Firstname:    "Ann",
				Lastname:     "Lee",
				Email:        email,
				PasswordHash: string(hash),
			}, nil
		},
	}
	svc := newTestService(repo, &mockIssuer{})

	result, err := svc.Login(context.Background(), "ann@x.com", "secret1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if result.Token != "test-token" {
		t.Errorf("token = %q, want %q", result.Token, "test-token")
	}
	if result.User.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", result.User.ID, "user-1")
	}
}

// 未登録メールアドレスとパスワード不一致が同一のエラーになることを検証
func TestService_Login_InvalidCredentialsMerged(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	unknownEmailRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, nil
		},
	}
	wrongPasswordRepo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: string(hash)}, nil
		},
	}

	_, errUnknown := newTestService(unknownEmailRepo, &mockIssuer{}).Login(context.Background(), "nobody@x.com", "whatever")
	_, errWrong := newTestService(wrongPasswordRepo, &mockIssuer{}).Login(context.Background(), "ann@x.com", "wrong-password")

	var apiErrUnknown, apiErrWrong *model.APIError
	if !errors.As(errUnknown, &apiErrUnknown) {
		t.Fatalf("expected APIError for unknown email, got %v", errUnknown)
	}
	if !errors.As(errWrong, &apiErrWrong) {
		t.Fatalf("expected APIError for wrong password, got %v", errWrong)
	}

	if apiErrUnknown.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("unknown email code = %q, want %q", apiErrUnknown.Code, model.ErrCodeInvalidCredentials)
	}
	if *apiErrUnknown != *apiErrWrong {
		t.Errorf("errors differ: unknown=%+v wrong=%+v", apiErrUnknown, apiErrWrong)
	}
}

// email/password欠落時にVALIDATION_ERRORになることを検証
func TestService_Login_MissingFields(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockIssuer{})

	for _, tt := range []struct{ email, password string }{
		{"", "secret1"},
		{"ann@x.com", ""},
	} {
		_, err := svc.Login(context.Background(), tt.email, tt.password)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Code != model.ErrCodeValidation {
			t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
		}
	}
}

// GetUserが公開ビューを返し、パスワードハッシュを含まないことを検証
func TestService_GetUser_Found(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:           id,
				Firstname:    "Ann",
				Lastname:     "Lee",
				Email:        "ann@x.com",
				PasswordHash: "$2a$10$hash",
			}, nil
		},
	}
	svc := newTestService(repo, &mockIssuer{})

	user, err := svc.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if user.ID != "user-1" || user.Email != "ann@x.com" {
		t.Errorf("unexpected user: %+v", user)
	}
}

// 存在しないユーザーのGetUserがUSER_NOT_FOUNDになることを検証
func TestService_GetUser_NotFound(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockIssuer{})

	_, err := svc.GetUser(context.Background(), "nonexistent")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}
