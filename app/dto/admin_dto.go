package dto

// ExportDealsRequest filters the admin deal report
type ExportDealsRequest struct {
	Status       *string `json:"status,omitempty" query:"status"`
	SalesChannel *string `json:"sales_channel,omitempty" query:"sales_channel"`
	StartDate    *string `json:"start_date,omitempty" query:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string `json:"end_date,omitempty" query:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Admin error codes
const (
	ErrorReportGenerationFailed = "REPORT_GENERATION_FAILED"
	ErrorInvalidDateRange       = "INVALID_DATE_RANGE"
	ErrorAdminOnly              = "ADMIN_ONLY"
)
