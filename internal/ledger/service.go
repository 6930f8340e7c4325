// Package ledger は所有者スコープ付きの取引CRUDと集計のドメインロジックを提供する。
//
// すべての参照・更新・削除はレコードIDと認証済み呼び出し元のIDの両方で照合され、
// 他ユーザー所有のレコードは存在しないレコードと区別されない。
// 同一レコードへの同時更新はストアレベルで後勝ち（last-write-wins）となる。
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
	"github.com/hitoshi/kakeibo/internal/security"
)

// MetricsRecorder は取引書き込みのメトリクス記録インターフェース。nil可。
type MetricsRecorder interface {
	RecordTransactionWritten(kind model.TransactionKind)
}

// Service は1種別（収入または支出）の取引CRUDを提供する。
// 収入用と支出用に同じ実装を種別パラメータ違いで2インスタンス生成して使う。
type Service struct {
	repo      repository.TransactionRepository
	kind      model.TransactionKind
	sanitizer security.TextSanitizerService
	metrics   MetricsRecorder
}

// NewService はServiceを生成する。
func NewService(
	repo repository.TransactionRepository,
	kind model.TransactionKind,
	sanitizer security.TextSanitizerService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		repo:      repo,
		kind:      kind,
		sanitizer: sanitizer,
		metrics:   metrics,
	}
}

// Kind はこのサービスが扱う取引種別を返す。
func (s *Service) Kind() model.TransactionKind {
	return s.kind
}

// CreateInput は取引作成の入力を表す。
// 所有者とIDはサーバー側で決定するため、入力には含まれない。
type CreateInput struct {
	Category    string
	Amount      float64
	Date        time.Time
	Description string
}

// List は所有者の全取引を日付降順で返す。0件の場合は空スライスを返す（エラーではない）。
func (s *Service) List(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
	list, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.kind, err)
	}
	return list, nil
}

// Create は認証済み呼び出し元を所有者とする取引を作成する。
// クライアントがIDや所有者を指定する手段はなく、常にサーバー側で割り当てる。
func (s *Service) Create(ctx context.Context, ownerID string, input CreateInput) (*model.Transaction, error) {
	category := s.sanitizer.Sanitize(input.Category)
	if category == "" {
		return nil, model.NewValidationError("category は必須です")
	}
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}

	now := time.Now()
	date := input.Date
	if date.IsZero() {
		date = now
	}

	tr := &model.Transaction{
		ID:        uuid.New().String(),
		UserID:    ownerID,
		Kind:      s.kind,
		Category:  category,
		Amount:    input.Amount,
		Date:      date,
		CreatedAt: now,
	}
	if s.kind == model.KindExpense {
		tr.Description = s.sanitizer.Sanitize(input.Description)
	}

	if err := s.repo.Insert(ctx, tr); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.kind, err)
	}

	slog.Info("transaction created",
		slog.String("kind", string(s.kind)),
		slog.String("transaction_id", tr.ID),
		slog.String("user_id", ownerID),
	)
	if s.metrics != nil {
		s.metrics.RecordTransactionWritten(s.kind)
	}

	return tr, nil
}

// Update はIDと所有者の両方が一致する取引に部分更新を適用し、更新後のレコードを返す。
// 一致するレコードがない場合（他ユーザー所有を含む）はTRANSACTION_NOT_FOUNDを返す。
func (s *Service) Update(ctx context.Context, ownerID, id string, patch *model.TransactionPatch) (*model.Transaction, error) {
	if patch.Category != nil {
		category := s.sanitizer.Sanitize(*patch.Category)
		if category == "" {
			return nil, model.NewValidationError("category を空にすることはできません")
		}
		patch.Category = &category
	}
	if patch.Amount != nil {
		if err := validateAmount(*patch.Amount); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if s.kind == model.KindIncome {
			patch.Description = nil
		} else {
			description := s.sanitizer.Sanitize(*patch.Description)
			patch.Description = &description
		}
	}

	updated, err := s.repo.UpdateByIDAndOwner(ctx, id, ownerID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", s.kind, err)
	}
	if updated == nil {
		return nil, model.NewTransactionNotFoundError(s.kind)
	}

	if s.metrics != nil {
		s.metrics.RecordTransactionWritten(s.kind)
	}

	return updated, nil
}

// Delete はIDと所有者の両方が一致する取引を削除する。
// 一致するレコードがない場合はTRANSACTION_NOT_FOUNDを返す。
// 削除済みレコードへの再削除も同じエラーになる（冪等）。
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	deleted, err := s.repo.DeleteByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.kind, err)
	}
	if !deleted {
		return model.NewTransactionNotFoundError(s.kind)
	}

	slog.Info("transaction deleted",
		slog.String("kind", string(s.kind)),
		slog.String("transaction_id", id),
		slog.String("user_id", ownerID),
	)

	return nil
}

// validateAmount は金額のバリデーションを行う。
// 0以下・NaN・無限大は許可しない。返金は負の支出ではなく収入として記録する運用。
func validateAmount(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return model.NewValidationError("amount は0より大きい数値を指定してください")
	}
	return nil
}
