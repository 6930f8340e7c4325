// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/kakeibo/internal/model"
)

// ErrDuplicateEmail は登録済みメールアドレスでのユーザー作成時に返される。
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository はユーザー認証情報の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail は指定メールアドレスのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// CreateWithSeed はユーザーと初期取引データを同一トランザクションで作成する。
	// いずれかのINSERTが失敗した場合は全体がロールバックされ、ユーザーは作成されない。
	// メールアドレスが重複している場合はErrDuplicateEmailを返す。
	CreateWithSeed(ctx context.Context, user *model.User, seeds []*model.Transaction) error
}

// TransactionRepository は取引レコードの永続化インターフェース。
// 収入・支出それぞれに対して1つの実装を持つ。
// 所有者スコープ付きの4操作はすべて「他ユーザー所有」と「存在しない」を区別しない。
type TransactionRepository interface {
	// Insert は取引を作成する。
	Insert(ctx context.Context, tr *model.Transaction) error

	// ListByOwner は所有者の全取引を日付降順で返す。0件の場合は空スライスを返す。
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error)

	// FindByIDAndOwner はIDと所有者の両方が一致する取引を取得する。
	// 一致しない場合はnilを返す。
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Transaction, error)

	// UpdateByIDAndOwner はIDと所有者の両方が一致する取引に部分更新を適用し、
	// 更新後のレコードを返す。一致しない場合はnilを返す。
	UpdateByIDAndOwner(ctx context.Context, id, ownerID string, patch *model.TransactionPatch) (*model.Transaction, error)

	// DeleteByIDAndOwner はIDと所有者の両方が一致する取引を削除する。
	// 削除した場合はtrue、一致するレコードがない場合はfalseを返す。
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error)
}
