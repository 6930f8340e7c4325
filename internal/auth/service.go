// Package auth はユーザー登録・ログイン・本人照会の認証ロジックを提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// dummyPasswordHash はメールアドレス未登録時のタイミング差を抑えるための比較用ハッシュ。
// ログインでは未登録メールアドレスでもbcrypt比較を1回実行してから失敗を返す。
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// TokenIssuer はトークン発行のインターフェース。
// token.Serviceの部分集合として定義する。
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// MetricsRecorder は認証結果のメトリクス記録インターフェース。nil可。
type MetricsRecorder interface {
	RecordRegister(success bool)
	RecordLogin(success bool)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int // パスワードハッシュのコストファクタ
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	issuer   TokenIssuer
	metrics  MetricsRecorder
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	issuer TokenIssuer,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		userRepo: userRepo,
		issuer:   issuer,
		metrics:  metrics,
		config:   config,
	}
}

// AuthResult は登録・ログイン成功時の結果を表す。
type AuthResult struct {
	User  model.PublicUser
	Token string
}

// Register は新規ユーザーを登録し、トークンを発行する。
// ユーザーレコードと初期取引4件（収入2件・支出2件）は同一トランザクションで作成され、
// 初期データの挿入に失敗した場合は登録全体がロールバックされる。
func (s *Service) Register(ctx context.Context, firstname, lastname, email, password string) (*AuthResult, error) {
	firstname = strings.TrimSpace(firstname)
	lastname = strings.TrimSpace(lastname)
	email = strings.TrimSpace(email)

	if firstname == "" || lastname == "" || email == "" || password == "" {
		s.recordRegister(false)
		return nil, model.NewValidationError("firstname, lastname, email, password はすべて必須です")
	}

	// 1. メールアドレスの重複確認
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.recordRegister(false)
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		s.recordRegister(false)
		return nil, model.NewDuplicateEmailError()
	}

	// 2. パスワードをハッシュ化（平文は保存しない）
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		s.recordRegister(false)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Firstname:    firstname,
		Lastname:     lastname,
		Email:        email,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 3. ユーザーと初期取引データを同一トランザクションで作成
	// FindByEmailとの間の競合はusersテーブルの一意制約が防ぐ
	if err := s.userRepo.CreateWithSeed(ctx, user, seedTransactions(user.ID, now)); err != nil {
		s.recordRegister(false)
		if err == repository.ErrDuplicateEmail {
			return nil, model.NewDuplicateEmailError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// 4. トークンを発行
	tokenString, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.recordRegister(false)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	s.recordRegister(true)

	return &AuthResult{User: user.Public(), Token: tokenString}, nil
}

// Login はメールアドレスとパスワードで認証し、トークンを発行する。
// メールアドレス未登録とパスワード不一致は同一のエラーを返し、
// レスポンス内容からユーザーの存在が推測できないようにする。
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	if email == "" || password == "" {
		s.recordLogin(false)
		return nil, model.NewValidationError("email, password は必須です")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.recordLogin(false)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// タイミング差を抑えるためダミーハッシュと比較してから失敗を返す
		_ = bcrypt.CompareHashAndPassword([]byte(dummyPasswordHash), []byte(password))
		s.recordLogin(false)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordLogin(false)
		return nil, model.NewInvalidCredentialsError()
	}

	tokenString, err := s.issuer.Issue(user.ID)
	if err != nil {
		s.recordLogin(false)
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)
	s.recordLogin(true)

	return &AuthResult{User: user.Public(), Token: tokenString}, nil
}

// GetUser は認証済みユーザーの公開ビューを取得する。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.PublicUser, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	pub := user.Public()
	return &pub, nil
}

func (s *Service) recordRegister(success bool) {
	if s.metrics != nil {
		s.metrics.RecordRegister(success)
	}
}

func (s *Service) recordLogin(success bool) {
	if s.metrics != nil {
		s.metrics.RecordLogin(success)
	}
}

// seedTransactions は新規ユーザーの初期取引データを生成する。
// 収入2件（Salary 8000、Bonus 2000）と支出2件（Food 400、Transport 150）、日付はすべて登録時刻。
func seedTransactions(userID string, now time.Time) []*model.Transaction {
	return []*model.Transaction{
		{
			ID:        uuid.New().String(),
			UserID:    userID,
			Kind:      model.KindIncome,
			Category:  "Salary",
			Amount:    8000,
			Date:      now,
			CreatedAt: now,
		},
		{
			ID:        uuid.New().String(),
			UserID:    userID,
			Kind:      model.KindIncome,
			Category:  "Bonus",
			Amount:    2000,
			Date:      now,
			CreatedAt: now,
		},
		{
			ID:          uuid.New().String(),
			UserID:      userID,
			Kind:        model.KindExpense,
			Category:    "Food",
			Amount:      400,
			Date:        now,
			Description: "Lunch at cafe",
			CreatedAt:   now,
		},
		{
			ID:          uuid.New().String(),
			UserID:      userID,
			Kind:        model.KindExpense,
			Category:    "Transport",
			Amount:      150,
			Date:        now,
			Description: "Metro ride",
			CreatedAt:   now,
		},
	}
}
