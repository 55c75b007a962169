// Package businessflow contains the core business logic and use cases for deal intake and approval workflows
package businessflow

import (
	"errors"
	"fmt"

	"github.com/dealdesk/deal-desk/models"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrAccountInactive   = errors.New("account is inactive")
	ErrIncorrectPassword = errors.New("incorrect password")

	// Deal-related errors
	ErrDealNotFound       = errors.New("deal not found")
	ErrDealAccessDenied   = errors.New("deal access denied")
	ErrDealNotEditable    = errors.New("deal is not editable in its current status")
	ErrDealUUIDRequired   = errors.New("deal UUID is required")
	ErrDealUpdateRequired = errors.New("at least one field must be provided for update")
	ErrDealSpecIncomplete = errors.New("deal type, sales channel and contract term are required before submission")
	ErrDealModelInvalid   = errors.New("deal tier model has validation violations")
	ErrInvalidStateChange = errors.New("invalid deal status transition")

	// Workflow-related errors
	ErrWorkflowAlreadyInitiated = errors.New("approval workflow already initiated for this submission")
	ErrWorkflowNotInitiated     = errors.New("approval workflow has not been initiated")
	ErrApprovalNotFound         = errors.New("approval not found")
	ErrApprovalNotPending       = errors.New("approval has already been decided")
	ErrReviewNotAuthorized      = errors.New("user is not authorized to review this approval")
	ErrInvalidDecision          = errors.New("decision must be approved, rejected or revision_requested")

	// Department-related errors
	ErrDepartmentNotFound = errors.New("approval department not found")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsDealNotFound(err error) bool {
	return errors.Is(err, ErrDealNotFound)
}

func IsDealAccessDenied(err error) bool {
	return errors.Is(err, ErrDealAccessDenied)
}

func IsDealNotEditable(err error) bool {
	return errors.Is(err, ErrDealNotEditable)
}

func IsDealModelInvalid(err error) bool {
	return errors.Is(err, ErrDealModelInvalid)
}

func IsDealSpecIncomplete(err error) bool {
	return errors.Is(err, ErrDealSpecIncomplete)
}

func IsInvalidStateChange(err error) bool {
	return errors.Is(err, ErrInvalidStateChange)
}

func IsWorkflowAlreadyInitiated(err error) bool {
	return errors.Is(err, ErrWorkflowAlreadyInitiated)
}

func IsApprovalNotFound(err error) bool {
	return errors.Is(err, ErrApprovalNotFound)
}

func IsApprovalNotPending(err error) bool {
	return errors.Is(err, ErrApprovalNotPending)
}

func IsReviewNotAuthorized(err error) bool {
	return errors.Is(err, ErrReviewNotAuthorized)
}

func IsTierCapacityExceeded(err error) bool {
	return errors.Is(err, models.ErrTierCapacityExceeded)
}

func IsMinimumTiersViolation(err error) bool {
	return errors.Is(err, models.ErrMinimumTiersViolation)
}

func IsTierNotFound(err error) bool {
	return errors.Is(err, models.ErrTierNotFound)
}

func IsInvalidDealAttributes(err error) bool {
	return errors.Is(err, models.ErrInvalidDealAttributes)
}
