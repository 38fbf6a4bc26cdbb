package application

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dmehra2102/storefront/internal/order/domain"
	"github.com/dmehra2102/storefront/pkg/apperr"
)

const (
	defaultPage    = 1
	defaultLimit   = 10
	maxLimit       = 100
	maxPage        = 100000
	maxFieldLen    = 500
	maxFeedbackLen = 2000
	dateLayout     = "2006-01-02"
)

type PlaceOrderInput struct {
	Address       string `json:"address"`
	ContactNumber string `json:"contactNumber"`
}

type AssignRiderInput struct {
	OrderID string `json:"orderId"`
	RiderID string `json:"riderId"`
}

// ListParams is the raw paging input of the list endpoints.
type ListParams struct {
	Page   string
	Limit  string
	Status string
}

type SalesParams struct {
	From    string
	To      string
	GroupBy string
}

func (in PlaceOrderInput) Validate() (PlaceOrderInput, error) {
	out := PlaceOrderInput{
		Address:       strings.TrimSpace(in.Address),
		ContactNumber: strings.TrimSpace(in.ContactNumber),
	}
	if out.Address == "" || out.ContactNumber == "" {
		return PlaceOrderInput{}, apperr.InvalidInput("address and contact number are required")
	}
	if utf8.RuneCountInString(out.Address) > maxFieldLen || utf8.RuneCountInString(out.ContactNumber) > maxFieldLen {
		return PlaceOrderInput{}, apperr.InvalidInput("address and contact number must be at most %d characters", maxFieldLen)
	}
	return out, nil
}

func (in AssignRiderInput) Validate() error {
	if in.OrderID == "" || in.RiderID == "" {
		return apperr.InvalidInput("order ID and rider ID are required")
	}
	if !validID(in.OrderID) || !validID(in.RiderID) {
		return apperr.InvalidInput("invalid ID format")
	}
	return nil
}

func validateOrderID(id string) error {
	if id == "" {
		return apperr.InvalidInput("order ID is required")
	}
	if !validID(id) {
		return apperr.InvalidInput("invalid order ID format")
	}
	return nil
}

func validateFeedback(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.InvalidInput("feedback is required")
	}
	if utf8.RuneCountInString(text) > maxFeedbackLen {
		return "", apperr.InvalidInput("feedback must be at most %d characters", maxFeedbackLen)
	}
	return text, nil
}

func validateDeliveryStatus(s string) (domain.Status, error) {
	st, ok := domain.ParseStatus(s)
	if !ok || (st != domain.StatusDelivered && st != domain.StatusCancelled) {
		return "", apperr.InvalidInput("status can only be updated to 'Delivered' or 'Cancelled'")
	}
	return st, nil
}

// parseList turns raw paging input into a query. An unknown status filter is
// ignored rather than rejected.
func parseList(p ListParams) (domain.Query, error) {
	q := domain.Query{Page: defaultPage, Limit: defaultLimit}
	if p.Page != "" {
		n, err := strconv.Atoi(p.Page)
		if err != nil || n < 1 || n > maxPage {
			return domain.Query{}, apperr.InvalidInput("page must be between 1 and %d", maxPage)
		}
		q.Page = n
	}
	if p.Limit != "" {
		n, err := strconv.Atoi(p.Limit)
		if err != nil || n < 1 || n > maxLimit {
			return domain.Query{}, apperr.InvalidInput("limit must be between 1 and %d", maxLimit)
		}
		q.Limit = n
	}
	if st, ok := domain.ParseStatus(p.Status); ok {
		q.Status = st
	}
	return q, nil
}

// parseSales defaults to the current calendar year grouped by month. to is
// inclusive of the whole day.
func parseSales(p SalesParams, now time.Time) (time.Time, time.Time, domain.Granularity, error) {
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := now
	if p.From != "" {
		t, err := time.Parse(dateLayout, p.From)
		if err != nil {
			return time.Time{}, time.Time{}, "", apperr.InvalidInput("invalid date format")
		}
		from = t
	}
	if p.To != "" {
		t, err := time.Parse(dateLayout, p.To)
		if err != nil {
			return time.Time{}, time.Time{}, "", apperr.InvalidInput("invalid date format")
		}
		to = t.Add(24*time.Hour - time.Nanosecond)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, "", apperr.InvalidInput("end date must not be before start date")
	}
	by := domain.ByMonth
	if p.GroupBy == string(domain.ByYear) {
		by = domain.ByYear
	}
	return from, to, by, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
