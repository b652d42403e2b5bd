package datawarehouse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LoanRecord is one row of the warehouse loan pipeline view
type LoanRecord struct {
	LoanID            string
	BorrowerName      string
	Stage             string
	Status            string
	LoanAmount        *float64
	BPS               *float64
	SplitPercent      *float64
	ExpectedCloseDate *time.Time
	CloseDate         *time.Time
}

// LoanPipelineQuery builds the loan pipeline query for a configured view name
func LoanPipelineQuery(view string) (string, error) {
	if !viewNamePattern.MatchString(view) {
		return "", fmt.Errorf("invalid loan pipeline view name: %q", view)
	}
	return "SELECT loan_id, borrower_name, loan_stage, loan_status, loan_amount, bps, split_percent, " +
		"expected_close_date, close_date FROM " + view + " WHERE organization_id = @organization_id", nil
}

// LoanFromRow converts a generic warehouse row into a LoanRecord
func LoanFromRow(row map[string]interface{}) LoanRecord {
	return LoanRecord{
		LoanID:            toString(row["loan_id"]),
		BorrowerName:      toString(row["borrower_name"]),
		Stage:             toString(row["loan_stage"]),
		Status:            toString(row["loan_status"]),
		LoanAmount:        toFloat(row["loan_amount"]),
		BPS:               toFloat(row["bps"]),
		SplitPercent:      toFloat(row["split_percent"]),
		ExpectedCloseDate: toTime(row["expected_close_date"]),
		CloseDate:         toTime(row["close_date"]),
	}
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case []byte:
		return strings.TrimSpace(string(val))
	case int64:
		return strconv.FormatInt(val, 10)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

// toFloat handles the driver's DECIMAL encoding as []byte
func toFloat(v interface{}) *float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int64:
		f = float64(val)
	case int32:
		f = float64(val)
	case []byte:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func toTime(v interface{}) *time.Time {
	switch val := v.(type) {
	case time.Time:
		if val.IsZero() {
			return nil
		}
		t := val.UTC()
		return &t
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(val)); err == nil {
				return &t
			}
		}
	}
	return nil
}
