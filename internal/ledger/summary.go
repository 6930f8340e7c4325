package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/kakeibo/internal/model"
	"github.com/hitoshi/kakeibo/internal/repository"
)

// recentLimit はSummaryに含める直近取引の最大件数。
const recentLimit = 5

// CategoryTotal はカテゴリごとの合計金額と件数を表す。
type CategoryTotal struct {
	Category string
	Total    float64
	Count    int
}

// Summary は所有者のダッシュボード集計結果を表す。
type Summary struct {
	TotalIncome       float64
	TotalExpense      float64
	Balance           float64
	IncomeByCategory  []CategoryTotal
	ExpenseByCategory []CategoryTotal
	Recent            []*model.Transaction
}

// SummaryService は収入・支出両方の取引を横断したダッシュボード集計を提供する。
// 合計はfloat64の逐次加算による誤差を避けるためdecimalで計算する。
type SummaryService struct {
	incomes  repository.TransactionRepository
	expenses repository.TransactionRepository
}

// NewSummaryService はSummaryServiceを生成する。
func NewSummaryService(incomes, expenses repository.TransactionRepository) *SummaryService {
	return &SummaryService{
		incomes:  incomes,
		expenses: expenses,
	}
}

// Summarize は所有者の全取引を集計する。
func (s *SummaryService) Summarize(ctx context.Context, ownerID string) (*Summary, error) {
	incomes, err := s.incomes.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomes: %w", err)
	}
	expenses, err := s.expenses.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	totalIncome, incomeByCategory := aggregate(incomes)
	totalExpense, expenseByCategory := aggregate(expenses)

	return &Summary{
		TotalIncome:       totalIncome.InexactFloat64(),
		TotalExpense:      totalExpense.InexactFloat64(),
		Balance:           totalIncome.Sub(totalExpense).InexactFloat64(),
		IncomeByCategory:  incomeByCategory,
		ExpenseByCategory: expenseByCategory,
		Recent:            mergeRecent(incomes, expenses, recentLimit),
	}, nil
}

// aggregate は取引リストの総額とカテゴリ別内訳を計算する。
// 内訳は合計金額の降順、同額の場合はカテゴリ名の昇順で返す。
func aggregate(list []*model.Transaction) (decimal.Decimal, []CategoryTotal) {
	total := decimal.Zero
	byCategory := map[string]decimal.Decimal{}
	counts := map[string]int{}

	for _, tr := range list {
		amount := decimal.NewFromFloat(tr.Amount)
		total = total.Add(amount)
		byCategory[tr.Category] = byCategory[tr.Category].Add(amount)
		counts[tr.Category]++
	}

	categories := make([]CategoryTotal, 0, len(byCategory))
	for category, sum := range byCategory {
		categories = append(categories, CategoryTotal{
			Category: category,
			Total:    sum.InexactFloat64(),
			Count:    counts[category],
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Total != categories[j].Total {
			return categories[i].Total > categories[j].Total
		}
		return categories[i].Category < categories[j].Category
	})

	return total, categories
}

// mergeRecent は日付降順の2リストをマージし、新しい順に最大limit件を返す。
func mergeRecent(incomes, expenses []*model.Transaction, limit int) []*model.Transaction {
	merged := make([]*model.Transaction, 0, len(incomes)+len(expenses))
	merged = append(merged, incomes...)
	merged = append(merged, expenses...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.After(merged[j].Date)
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
