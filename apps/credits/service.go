package credits

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/flowzap/flowzap-backend/apps/models"
	"gorm.io/gorm"
)

// Service implements the prepaid credit ledger. All balance mutations go
// through a single conditional update on the account row, so concurrent
// consumers can never jointly overdraw an account.
type Service struct {
	db *gorm.DB
}

// NewService creates a credit ledger bound to the given database handle
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Balance returns the company's current balance, creating a zero-balance
// account on first access.
func (s *Service) Balance(ctx context.Context, companyID uint) (int64, error) {
	var account models.CreditAccount
	err := s.db.WithContext(ctx).
		Where(models.CreditAccount{CompanyID: companyID}).
		FirstOrCreate(&account).Error
	if err != nil {
		return 0, translateError(err)
	}
	return account.Balance, nil
}

// Consume atomically debits the account and appends the usage transaction.
// The debit is conditional on sufficient balance; on insufficient funds it
// returns InsufficientBalanceError without touching the account.
func (s *Service) Consume(ctx context.Context, companyID uint, amount int64, serviceType, description string, reference *string, actor string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if strings.TrimSpace(serviceType) == "" {
		return 0, fmt.Errorf("%w: service type is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(description) == "" {
		return 0, fmt.Errorf("%w: description is required", ErrInvalidArgument)
	}

	var newBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.CreditAccount
		if err := tx.Where(models.CreditAccount{CompanyID: companyID}).FirstOrCreate(&account).Error; err != nil {
			return err
		}

		// The check-then-debit must be one statement; anything else races
		// against concurrent consumers of the same account.
		res := tx.Model(&models.CreditAccount{}).
			Where("company_id = ? AND balance >= ?", companyID, amount).
			Update("balance", gorm.Expr("balance - ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Where("company_id = ?", companyID).First(&account).Error; err != nil {
				return err
			}
			return &InsufficientBalanceError{Balance: account.Balance, Required: amount}
		}

		row := models.CreditTransaction{
			CompanyID:   companyID,
			Type:        models.CreditTransactionUsage,
			Amount:      amount,
			ServiceType: serviceType,
			Description: description,
			Reference:   reference,
			Actor:       actor,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("company_id = ?", companyID).First(&account).Error; err != nil {
			return err
		}
		newBalance = account.Balance
		return nil
	})
	if err != nil {
		return 0, translateError(err)
	}

	return newBalance, nil
}

// Add credits the account and appends the audit transaction. txType must be
// one of purchase, bonus or refund.
func (s *Service) Add(ctx context.Context, companyID uint, amount int64, txType, description string, reference *string, actor string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	switch txType {
	case models.CreditTransactionPurchase, models.CreditTransactionBonus, models.CreditTransactionRefund:
	default:
		return 0, fmt.Errorf("%w: unknown credit transaction type %q", ErrInvalidArgument, txType)
	}

	var newBalance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var account models.CreditAccount
		if err := tx.Where(models.CreditAccount{CompanyID: companyID}).FirstOrCreate(&account).Error; err != nil {
			return err
		}

		res := tx.Model(&models.CreditAccount{}).
			Where("company_id = ?", companyID).
			Update("balance", gorm.Expr("balance + ?", amount))
		if res.Error != nil {
			return res.Error
		}

		row := models.CreditTransaction{
			CompanyID:   companyID,
			Type:        txType,
			Amount:      amount,
			Description: description,
			Reference:   reference,
			Actor:       actor,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		if err := tx.Where("company_id = ?", companyID).First(&account).Error; err != nil {
			return err
		}
		newBalance = account.Balance
		return nil
	})
	if err != nil {
		return 0, translateError(err)
	}

	return newBalance, nil
}

// ServiceTypeUsage is one entry of the usage ranking
type ServiceTypeUsage struct {
	ServiceType string  `json:"service_type"`
	Total       int64   `json:"total"`
	Percent     float64 `json:"percent"`
}

// UsageStats aggregates usage over the current and previous calendar month
type UsageStats struct {
	TotalThisPeriod  int64              `json:"total_this_period"`
	TotalPriorPeriod int64              `json:"total_prior_period"`
	AverageDaily     float64            `json:"average_daily"`
	TopServiceTypes  []ServiceTypeUsage `json:"top_service_types"`
}

// UsageStats computes usage aggregates from the transaction log. Pure read.
func (s *Service) UsageStats(ctx context.Context, companyID uint) (*UsageStats, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	priorStart := monthStart.AddDate(0, -1, 0)

	stats := UsageStats{TopServiceTypes: []ServiceTypeUsage{}}

	current, err := s.sumUsage(ctx, companyID, monthStart, now)
	if err != nil {
		return nil, translateError(err)
	}
	stats.TotalThisPeriod = current

	prior, err := s.sumUsage(ctx, companyID, priorStart, monthStart)
	if err != nil {
		return nil, translateError(err)
	}
	stats.TotalPriorPeriod = prior

	elapsedDays := now.Day()
	stats.AverageDaily = math.Round(float64(current)/float64(elapsedDays)*10) / 10

	type usageRow struct {
		ServiceType string
		Total       int64
	}
	var rows []usageRow
	err = s.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("service_type, SUM(amount) AS total, MIN(created_at) AS first_seen").
		Where("company_id = ? AND type = ? AND created_at >= ? AND created_at < ?",
			companyID, models.CreditTransactionUsage, monthStart, now).
		Group("service_type").
		Order("total DESC, first_seen ASC").
		Limit(5).
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	for _, row := range rows {
		entry := ServiceTypeUsage{ServiceType: row.ServiceType, Total: row.Total}
		if current > 0 {
			entry.Percent = math.Round(float64(row.Total)/float64(current)*1000) / 10
		}
		stats.TopServiceTypes = append(stats.TopServiceTypes, entry)
	}

	return &stats, nil
}

func (s *Service) sumUsage(ctx context.Context, companyID uint, from, to time.Time) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).
		Model(&models.CreditTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("company_id = ? AND type = ? AND created_at >= ? AND created_at < ?",
			companyID, models.CreditTransactionUsage, from, to).
		Scan(&total).Error
	return total, err
}

// ListTransactions returns the transaction log newest first. Unknown type
// filters are ignored rather than rejected.
func (s *Service) ListTransactions(ctx context.Context, companyID uint, limit, offset int, typeFilter string) ([]models.CreditTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset)

	switch typeFilter {
	case models.CreditTransactionPurchase,
		models.CreditTransactionUsage,
		models.CreditTransactionBonus,
		models.CreditTransactionRefund:
		query = query.Where("type = ?", typeFilter)
	}

	var rows []models.CreditTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	return rows, nil
}

// translateError maps store-level contention failures onto ErrLedgerConflict
// so callers know the operation is safe to retry wholesale.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "deadlock") || strings.Contains(msg, "database is locked") {
		return ErrLedgerConflict
	}
	return err
}
