package model

import "time"

// TransactionKind は取引の種別（収入/支出）を表す。
type TransactionKind string

const (
	// KindIncome は収入取引を示す。
	KindIncome TransactionKind = "income"
	// KindExpense は支出取引を示す。
	KindExpense TransactionKind = "expense"
)

// Label は種別の日本語表示名を返す。
func (k TransactionKind) Label() string {
	if k == KindIncome {
		return "収入"
	}
	return "支出"
}

// Transaction は収入または支出の取引1件を表す。
// UserIDは作成時に認証済み呼び出し元のIDが設定され、以後変更されない。
// Descriptionは支出のみで使用される任意フィールド。
type Transaction struct {
	ID          string
	UserID      string
	Kind        TransactionKind
	Category    string
	Amount      float64
	Date        time.Time
	Description string
	CreatedAt   time.Time
}

// TransactionPatch は部分更新で変更可能なフィールドを表す。
// nilのフィールドは既存の値を維持する。IDとUserIDは更新対象に含まれない。
type TransactionPatch struct {
	Category    *string
	Amount      *float64
	Date        *time.Time
	Description *string
}

// IsEmpty は更新対象フィールドが1つも指定されていない場合にtrueを返す。
func (p *TransactionPatch) IsEmpty() bool {
	return p.Category == nil && p.Amount == nil && p.Date == nil && p.Description == nil
}
