// Package businessflow contains the core business logic and use cases for admin reporting
package businessflow

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dealdesk/deal-desk/app/dto"
	"github.com/dealdesk/deal-desk/models"
	"github.com/dealdesk/deal-desk/repository"
	"github.com/dealdesk/deal-desk/utils"
	"github.com/xuri/excelize/v2"
)

// AdminDealReportFlow produces the deal portfolio export for administrators
type AdminDealReportFlow interface {
	// ExportDealsExcel builds an xlsx workbook with one sheet per deal status.
	// Returns the suggested filename and the file contents.
	ExportDealsExcel(ctx context.Context, adminID uint, req *dto.ExportDealsRequest, metadata *ClientMetadata) (string, []byte, error)
}

// AdminDealReportFlowImpl implements the admin deal report flow
type AdminDealReportFlowImpl struct {
	dealRepo  repository.DealRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditLogRepository
}

// NewAdminDealReportFlow creates a new admin deal report flow instance
func NewAdminDealReportFlow(
	dealRepo repository.DealRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
) AdminDealReportFlow {
	return &AdminDealReportFlowImpl{
		dealRepo:  dealRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
	}
}

// ExportDealsExcel builds the portfolio workbook, grouping deals by status
func (f *AdminDealReportFlowImpl) ExportDealsExcel(ctx context.Context, adminID uint, req *dto.ExportDealsRequest, metadata *ClientMetadata) (string, []byte, error) {
	admin, err := getUser(ctx, f.userRepo, adminID)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_GENERATION_FAILED", "Failed to generate deal report", err)
	}
	if admin.Role != models.RoleAdmin {
		return "", nil, NewBusinessError("ADMIN_ONLY", "Deal reports are restricted to administrators", ErrReviewNotAuthorized)
	}

	filter, err := buildExportFilter(req)
	if err != nil {
		return "", nil, NewBusinessError("INVALID_DATE_RANGE", "Invalid report filter", err)
	}

	deals, err := f.dealRepo.ByFilter(ctx, filter, "status ASC, created_at ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("REPORT_GENERATION_FAILED", "Failed to fetch deals for report", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	byStatus := make(map[models.DealStatus][]*models.Deal)
	order := make([]models.DealStatus, 0)
	for _, deal := range deals {
		if _, ok := byStatus[deal.Status]; !ok {
			order = append(order, deal.Status)
		}
		byStatus[deal.Status] = append(byStatus[deal.Status], deal)
	}

	header := []string{
		"id", "uuid", "seller_email", "title", "deal_type", "sales_channel",
		"non_standard_terms", "contract_term_months", "tier_count",
		"total_annual_revenue", "total_gross_margin", "avg_gross_margin_pct",
		"total_incentive_value", "effective_discount_rate", "monthly_value",
		"projected_net_value", "yoy_growth", "status", "created_at", "updated_at",
	}

	if len(order) == 0 {
		name := "deals"
		xl.SetSheetName(xl.GetSheetName(0), name)
		_ = xl.SetSheetRow(name, "A1", &header)
	}

	for i, status := range order {
		name := sanitizeSheetName(string(status))
		if i == 0 {
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}
		_ = xl.SetSheetRow(name, "A1", &header)

		for ri, deal := range byStatus[status] {
			record := dealReportRow(deal)
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("REPORT_GENERATION_FAILED", "Failed to write deal report", err)
	}

	msg := fmt.Sprintf("Deal report exported with %d deal(s)", len(deals))
	_ = writeAuditLog(ctx, f.auditRepo, &adminID, models.AuditActionDealReportExported, msg, true, nil, metadata)

	filename := fmt.Sprintf("deal_report_%s.xlsx", utils.UTCNow().Format("2006-01-02"))
	return filename, buf.Bytes(), nil
}

func buildExportFilter(req *dto.ExportDealsRequest) (models.DealFilter, error) {
	var filter models.DealFilter
	if req == nil {
		return filter, nil
	}

	if req.Status != nil && *req.Status != "" {
		status := models.DealStatus(*req.Status)
		if !status.Valid() {
			return filter, ErrInvalidStateChange
		}
		filter.Status = &status
	}
	if req.SalesChannel != nil && *req.SalesChannel != "" {
		channel := models.SalesChannel(*req.SalesChannel)
		filter.SalesChannel = &channel
	}

	var start, end *time.Time
	if req.StartDate != nil && *req.StartDate != "" {
		t, err := time.Parse("2006-01-02", *req.StartDate)
		if err != nil {
			return filter, err
		}
		start = &t
	}
	if req.EndDate != nil && *req.EndDate != "" {
		t, err := time.Parse("2006-01-02", *req.EndDate)
		if err != nil {
			return filter, err
		}
		// End date is inclusive of the whole day.
		eod := t.Add(24*time.Hour - time.Nanosecond)
		end = &eod
	}
	if start != nil && end != nil && start.After(*end) {
		return filter, ErrStartDateAfterEndDate
	}
	filter.CreatedAfter = start
	filter.CreatedBefore = end

	return filter, nil
}

func dealReportRow(deal *models.Deal) []string {
	contractTerm := 12
	if deal.Spec.ContractTermMonths != nil {
		contractTerm = *deal.Spec.ContractTermMonths
	}
	previousYearRevenue := 0.0
	if baseline := deal.Spec.BaselineForChannel(); baseline != nil {
		previousYearRevenue = baseline.PreviousYearRevenue
	}
	summary := models.ComputeFinancialSummary(deal.Tiers, contractTerm, previousYearRevenue)

	title := ""
	if deal.Spec.Title != nil {
		title = *deal.Spec.Title
	}
	dealType := ""
	if deal.Spec.DealType != nil {
		dealType = string(*deal.Spec.DealType)
	}
	channel := ""
	if deal.Spec.SalesChannel != nil {
		channel = string(*deal.Spec.SalesChannel)
	}
	sellerEmail := ""
	if deal.Seller != nil {
		sellerEmail = deal.Seller.Email
	}
	yoy := ""
	if summary.YearOverYearGrowth != nil {
		yoy = formatFloat(*summary.YearOverYearGrowth)
	}

	return []string{
		strconv.FormatUint(uint64(deal.ID), 10),
		deal.UUID.String(),
		sellerEmail,
		title,
		dealType,
		channel,
		strconv.FormatBool(deal.Spec.HasNonStandardTerms != nil && *deal.Spec.HasNonStandardTerms),
		strconv.Itoa(contractTerm),
		strconv.Itoa(len(deal.Tiers)),
		formatFloat(summary.TotalAnnualRevenue),
		formatFloat(summary.TotalGrossMargin),
		formatFloat(summary.AverageGrossMarginPercent),
		formatFloat(summary.TotalIncentiveValue),
		formatFloat(summary.EffectiveDiscountRate),
		formatFloat(summary.MonthlyValue),
		formatFloat(summary.ProjectedNetValue),
		yoy,
		string(deal.Status),
		deal.CreatedAt.UTC().Format(time.RFC3339),
		deal.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := strings.TrimSpace(replacer.Replace(name))
	if len(safe) > 31 {
		safe = safe[:31]
	}
	if safe == "" {
		return "Sheet"
	}
	return safe
}
