package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertLeadRequest_CounsellingFlagAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"camel case", `{"amount":"30000","createGeneticCounselling":true}`, true},
		{"short form", `{"amount":"30000","createGc":true}`, true},
		{"snake case", `{"amount":"30000","create_genetic_counselling":true}`, true},
		{"explicit false", `{"amount":"30000","createGc":false}`, false},
		{"absent defaults to false", `{"amount":"30000"}`, false},
		{"any true alias wins", `{"amount":"30000","createGc":false,"create_genetic_counselling":true}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ConvertLeadRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, req.CreateGC())
			assert.Equal(t, "30000", req.Amount)
		})
	}
}

func TestConvertLeadRequest_CarriesShipmentFields(t *testing.T) {
	body := `{"amount":"30000","totalAmount":"45000","paidAmount":"500","status":"picked_up","sampleType":"saliva","trackingId":"AWB-7","courierName":"DTDC"}`

	var req ConvertLeadRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, "45000", req.TotalAmount)
	assert.Equal(t, "500", req.PaidAmount)
	assert.Equal(t, "picked_up", req.Status)
	assert.Equal(t, "saliva", req.SampleType)
	assert.Equal(t, "AWB-7", req.TrackingID)
	assert.Equal(t, "DTDC", req.CourierName)
}

func TestStatusVocabularies(t *testing.T) {
	assert.True(t, LeadStatus("won").IsValid())
	assert.False(t, LeadStatus("lukewarm").IsValid())

	assert.True(t, SampleStatus("bioinformatics").IsValid())
	assert.False(t, SampleStatus("misplaced").IsValid())

	assert.True(t, TestCategory("discovery").IsValid())
	assert.False(t, TestCategory("research").IsValid())

	assert.True(t, QCStatus("failed").IsValid())
	assert.False(t, QCStatus("inconclusive").IsValid())
}
