package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/kakeibo/internal/model"
)

// PostgresTransactionRepo はPostgreSQLを使用した取引リポジトリ。
// kindに応じてincomesまたはexpensesテーブルを操作する。種別ごとに1インスタンスを生成する。
// descriptionカラムはexpensesテーブルのみに存在し、収入では常に空文字列になる。
type PostgresTransactionRepo struct {
	db   *sql.DB
	kind model.TransactionKind
}

// NewPostgresTransactionRepo は指定種別のPostgresTransactionRepoを生成する。
func NewPostgresTransactionRepo(db *sql.DB, kind model.TransactionKind) *PostgresTransactionRepo {
	return &PostgresTransactionRepo{db: db, kind: kind}
}

// table は種別に対応するテーブル名を返す。
func (r *PostgresTransactionRepo) table() string {
	if r.kind == model.KindIncome {
		return "incomes"
	}
	return "expenses"
}

// columns は種別に対応するSELECT対象カラムを返す。
func (r *PostgresTransactionRepo) columns() string {
	if r.kind == model.KindIncome {
		return "id, user_id, category, amount, date, created_at"
	}
	return "id, user_id, category, amount, date, description, created_at"
}

// scan は1行を種別に応じてTransactionに読み込む。
func (r *PostgresTransactionRepo) scan(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	tr := &model.Transaction{Kind: r.kind}
	var err error
	if r.kind == model.KindIncome {
		err = row.Scan(&tr.ID, &tr.UserID, &tr.Category, &tr.Amount, &tr.Date, &tr.CreatedAt)
	} else {
		err = row.Scan(&tr.ID, &tr.UserID, &tr.Category, &tr.Amount, &tr.Date, &tr.Description, &tr.CreatedAt)
	}
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Insert は取引を作成する。
func (r *PostgresTransactionRepo) Insert(ctx context.Context, tr *model.Transaction) error {
	var err error
	if r.kind == model.KindIncome {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO incomes (id, user_id, category, amount, date, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			tr.ID, tr.UserID, tr.Category, tr.Amount, tr.Date, tr.CreatedAt,
		)
	} else {
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO expenses (id, user_id, category, amount, date, description, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			tr.ID, tr.UserID, tr.Category, tr.Amount, tr.Date, tr.Description, tr.CreatedAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", r.kind, err)
	}
	return nil
}

// ListByOwner は所有者の全取引を日付降順で返す。0件の場合は空スライスを返す。
func (r *PostgresTransactionRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE user_id = $1 ORDER BY date DESC, created_at DESC`,
		r.columns(), r.table(),
	)
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.table(), err)
	}
	defer rows.Close()

	list := []*model.Transaction{}
	for rows.Next() {
		tr, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", r.kind, err)
		}
		list = append(list, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s rows: %w", r.table(), err)
	}

	return list, nil
}

// FindByIDAndOwner はIDと所有者の両方が一致する取引を取得する。
// 他ユーザー所有のレコードは存在しないレコードと同様にnilを返す。
func (r *PostgresTransactionRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Transaction, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE id = $1 AND user_id = $2`,
		r.columns(), r.table(),
	)
	tr, err := r.scan(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", r.kind, err)
	}
	return tr, nil
}

// UpdateByIDAndOwner はIDと所有者の両方が一致する取引に部分更新を適用する。
// UPDATE ... RETURNING の単一文で実行するため、照合と更新はアトミックに行われる。
// 一致するレコードがない場合はnilを返す。
func (r *PostgresTransactionRepo) UpdateByIDAndOwner(ctx context.Context, id, ownerID string, patch *model.TransactionPatch) (*model.Transaction, error) {
	sets := []string{}
	args := []any{}
	idx := 1

	if patch.Category != nil {
		sets = append(sets, fmt.Sprintf("category = $%d", idx))
		args = append(args, *patch.Category)
		idx++
	}
	if patch.Amount != nil {
		sets = append(sets, fmt.Sprintf("amount = $%d", idx))
		args = append(args, *patch.Amount)
		idx++
	}
	if patch.Date != nil {
		sets = append(sets, fmt.Sprintf("date = $%d", idx))
		args = append(args, *patch.Date)
		idx++
	}
	if r.kind == model.KindExpense && patch.Description != nil {
		sets = append(sets, fmt.Sprintf("description = $%d", idx))
		args = append(args, *patch.Description)
		idx++
	}

	// 更新対象フィールドがない場合も所有者照合は行い、現在のレコードを返す
	if len(sets) == 0 {
		return r.FindByIDAndOwner(ctx, id, ownerID)
	}

	args = append(args, id, ownerID)
	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE id = $%d AND user_id = $%d RETURNING %s`,
		r.table(), strings.Join(sets, ", "), idx, idx+1, r.columns(),
	)

	tr, err := r.scan(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.kind, err)
	}
	return tr, nil
}

// DeleteByIDAndOwner はIDと所有者の両方が一致する取引を削除する。
// 一致するレコードがない場合はfalseを返す（エラーにはしない）。
func (r *PostgresTransactionRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, r.table())
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.kind, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ TransactionRepository = (*PostgresTransactionRepo)(nil)
