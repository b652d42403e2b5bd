package commission

import "github.com/straye-as/pipeline-api/internal/domain"

// demoMonthlyData is the illustrative placeholder year shown when demo data
// is enabled and the organization has no qualifying deals
func demoMonthlyData() []domain.MonthlyCommission {
	return []domain.MonthlyCommission{
		{Month: "Jan", Gross: 45000, Net: 38000},
		{Month: "Feb", Gross: 62000, Net: 52000},
		{Month: "Mar", Gross: 51000, Net: 43000},
		{Month: "Apr", Gross: 78000, Net: 66000},
		{Month: "May", Gross: 55000, Net: 47000},
		{Month: "Jun", Gross: 68000, Net: 58000},
		{Month: "Jul", Gross: 42000, Net: 36000},
		{Month: "Aug", Gross: 71000, Net: 60000},
		{Month: "Sep", Gross: 59000, Net: 50000},
		{Month: "Oct", Gross: 64000, Net: 54000},
		{Month: "Nov", Gross: 48000, Net: 41000},
		{Month: "Dec", Gross: 73000, Net: 62000},
	}
}
