package datawarehouse

import (
	"context"
	"testing"
	"time"

	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		contains []string
		wantErr  bool
	}{
		{"host, port and database", "dw.example.net:1444/Loans", []string{"sqlserver://", "dw.example.net:1444", "database=Loans", "ApplicationIntent=ReadOnly"}, false},
		{"default port", "dw.example.net", []string{"dw.example.net:1433"}, false},
		{"empty host", ":1433/Loans", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			connStr, err := buildConnectionString(&config.DataWarehouseConfig{URL: tt.url, User: "reader", Password: "p@ss word"})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, connStr, want)
			}
			assert.NotContains(t, connStr, "p@ss word", "password is escaped")
		})
	}
}

func TestLoanPipelineQuery(t *testing.T) {
	query, err := LoanPipelineQuery("dbo.vw_LoanPipeline")
	require.NoError(t, err)
	assert.Contains(t, query, "FROM dbo.vw_LoanPipeline WHERE organization_id = @organization_id")

	for _, bad := range []string{"", "dbo.vw; DROP TABLE loans", "a.b.c", "1table"} {
		_, err := LoanPipelineQuery(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoanFromRow(t *testing.T) {
	closed := time.Date(2024, time.April, 3, 0, 0, 0, 0, time.UTC)
	loan := LoanFromRow(map[string]interface{}{
		"loan_id":             int64(40123),
		"borrower_name":       " Kari Nordmann ",
		"loan_stage":          "Closing",
		"loan_status":         []byte("Clear to Close"),
		"loan_amount":         []byte("350000.00"),
		"bps":                 float64(55),
		"split_percent":       nil,
		"expected_close_date": "2024-04-01",
		"close_date":          closed,
	})

	assert.Equal(t, "40123", loan.LoanID)
	assert.Equal(t, "Kari Nordmann", loan.BorrowerName)
	assert.Equal(t, "Clear to Close", loan.Status)
	require.NotNil(t, loan.LoanAmount)
	assert.Equal(t, 350000.0, *loan.LoanAmount)
	require.NotNil(t, loan.BPS)
	assert.Equal(t, 55.0, *loan.BPS)
	assert.Nil(t, loan.SplitPercent)
	require.NotNil(t, loan.ExpectedCloseDate)
	assert.Equal(t, time.April, loan.ExpectedCloseDate.Month())
	require.NotNil(t, loan.CloseDate)
	assert.True(t, closed.Equal(*loan.CloseDate))
}

func TestLoanFromRow_BadValues(t *testing.T) {
	loan := LoanFromRow(map[string]interface{}{
		"loan_amount": []byte("n/a"),
		"close_date":  "someday",
	})
	assert.Empty(t, loan.LoanID)
	assert.Nil(t, loan.LoanAmount)
	assert.Nil(t, loan.CloseDate)
}

func TestNewClient_Disabled(t *testing.T) {
	client, err := NewClient(&config.DataWarehouseConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.False(t, client.IsEnabled())
	assert.NoError(t, client.Close())
	assert.Equal(t, "disabled", client.HealthCheck(context.Background()).Status)

	_, err = client.FetchLoanPipeline(context.Background(), "org")
	assert.Error(t, err)
}

func TestNewClient_MissingCredentials(t *testing.T) {
	client, err := NewClient(&config.DataWarehouseConfig{Enabled: true, URL: "dw:1433"}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClient_InvalidView(t *testing.T) {
	_, err := NewClient(&config.DataWarehouseConfig{
		Enabled: true, URL: "dw:1433", User: "u", Password: "p", LoanPipelineView: "x; --",
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "abc", truncateQuery("abc", 10))
	assert.Equal(t, "ab...", truncateQuery("abcdef", 2))
}
