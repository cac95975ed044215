package credits

import (
	"context"
	"errors"
	"net/http"

	"github.com/flowzap/flowzap-backend/apps/models"
	"github.com/flowzap/flowzap-backend/lib/response"
	"github.com/flowzap/flowzap-backend/lib/tenant"
	"github.com/getevo/evo/v2"
	"github.com/getevo/evo/v2/lib/db"
	"github.com/getevo/evo/v2/lib/log"
	"github.com/getevo/pagination"
	"github.com/go-playground/validator/v10"
)

// Controller handles credit ledger endpoints
type Controller struct{}

var validate = validator.New()

// Balance handles GET /api/credits/balance
func (c Controller) Balance(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	balance, err := service.Balance(context.Background(), companyID)
	if err != nil {
		log.Error("Failed to load credit balance for company %d: %v", companyID, err)
		return response.Error(response.ErrDatabaseError)
	}

	return response.OK(map[string]any{"balance": balance})
}

// ConsumeRequest represents a credit consumption
type ConsumeRequest struct {
	Amount      int64   `json:"amount" validate:"required,gt=0"`
	ServiceType string  `json:"service_type" validate:"required,max=100"`
	Description string  `json:"description" validate:"required,max=500"`
	Reference   *string `json:"reference"`
}

// Consume handles POST /api/credits/consume
func (c Controller) Consume(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	var req ConsumeRequest
	if err := request.BodyParser(&req); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(req); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid consume request", http.StatusBadRequest, err.Error()))
	}

	balance, err := service.Consume(context.Background(), companyID, req.Amount, req.ServiceType, req.Description, req.Reference, tenant.ActorFromRequest(request))
	if err != nil {
		return ledgerErrorResponse(err)
	}

	return response.OK(map[string]any{"balance": balance})
}

// AddRequest represents a credit top-up
type AddRequest struct {
	Amount      int64   `json:"amount" validate:"required,gt=0"`
	Type        string  `json:"type" validate:"omitempty,oneof=purchase bonus refund"`
	Description string  `json:"description" validate:"required,max=500"`
	Reference   *string `json:"reference"`
}

// Add handles POST /api/credits/add
func (c Controller) Add(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	var req AddRequest
	if err := request.BodyParser(&req); err != nil {
		return response.Error(response.ErrInvalidInput)
	}
	if err := validate.Struct(req); err != nil {
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid add request", http.StatusBadRequest, err.Error()))
	}
	if req.Type == "" {
		req.Type = models.CreditTransactionPurchase
	}

	balance, err := service.Add(context.Background(), companyID, req.Amount, req.Type, req.Description, req.Reference, tenant.ActorFromRequest(request))
	if err != nil {
		return ledgerErrorResponse(err)
	}

	return response.OK(map[string]any{"balance": balance})
}

// Stats handles GET /api/credits/stats
func (c Controller) Stats(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	stats, err := service.UsageStats(context.Background(), companyID)
	if err != nil {
		log.Error("Failed to compute usage stats for company %d: %v", companyID, err)
		return response.Error(response.ErrDatabaseError)
	}

	return response.OK(stats)
}

// Transactions handles GET /api/credits/transactions
func (c Controller) Transactions(request *evo.Request) any {
	companyID, err := tenant.FromRequest(request)
	if err != nil {
		return response.Error(response.ErrInvalidCompany)
	}

	query := db.Model(&models.CreditTransaction{}).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC")

	typeFilter := request.Query("type").String()
	switch typeFilter {
	case models.CreditTransactionPurchase,
		models.CreditTransactionUsage,
		models.CreditTransactionBonus,
		models.CreditTransactionRefund:
		query = query.Where("type = ?", typeFilter)
	}

	var transactions []models.CreditTransaction
	p, err := pagination.New(query, request, &transactions, pagination.Options{MaxSize: 100})
	if err != nil {
		log.Error("Failed to list credit transactions for company %d: %v", companyID, err)
		return response.Error(response.ErrInternalError)
	}

	return response.OKWithMeta(transactions, &response.Meta{
		Page:       p.CurrentPage,
		Limit:      p.Size,
		Total:      int64(p.Records),
		TotalPages: p.Pages,
	})
}

func ledgerErrorResponse(err error) any {
	var insufficient *InsufficientBalanceError
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return response.Error(response.NewErrorWithDetails(response.ErrorCodeInvalidInput, "Invalid credit operation", http.StatusBadRequest, err.Error()))
	case errors.As(err, &insufficient):
		return response.Error(response.NewError(response.ErrorCodeInsufficientBalance, "Insufficient credit balance", http.StatusPaymentRequired).
			WithExtra(map[string]any{
				"balance":  insufficient.Balance,
				"required": insufficient.Required,
			}))
	case errors.Is(err, ErrLedgerConflict):
		return response.Error(response.NewError(response.ErrorCodeLedgerConflict, "Ledger conflict, retry the operation", http.StatusConflict))
	default:
		log.Error("Credit ledger operation failed: %v", err)
		return response.Error(response.ErrDatabaseError)
	}
}
