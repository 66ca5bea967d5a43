// Package export renders remittance files. Column order and element names
// are part of the downstream contract and must not change without
// coordination with investors.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/clearledger-systems/clearledger-stack/remit/internal/models"
)

var csvHeader = []string{
	"loan_id", "principal_minor", "interest_minor", "fees_minor",
	"investor_share_minor", "servicer_fee_minor",
}

// CSV renders one row per loan with fixed columns.
func CSV(items []*models.RemittanceItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for _, item := range items {
		record := []string{
			item.LoanID,
			strconv.FormatInt(item.PrincipalMinor, 10),
			strconv.FormatInt(item.InterestMinor, 10),
			strconv.FormatInt(item.FeesMinor, 10),
			strconv.FormatInt(item.InvestorShareMinor, 10),
			strconv.FormatInt(item.ServicerFeeMinor, 10),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row for loan %s: %w", item.LoanID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type xmlItem struct {
	LoanID             string `xml:"LoanID"`
	PrincipalMinor     int64  `xml:"PrincipalMinor"`
	InterestMinor      int64  `xml:"InterestMinor"`
	FeesMinor          int64  `xml:"FeesMinor"`
	InvestorShareMinor int64  `xml:"InvestorShareMinor"`
	ServicerFeeMinor   int64  `xml:"ServicerFeeMinor"`
}

type xmlTotals struct {
	PrincipalMinor   int64 `xml:"PrincipalMinor"`
	InterestMinor    int64 `xml:"InterestMinor"`
	FeesMinor        int64 `xml:"FeesMinor"`
	ServicerFeeMinor int64 `xml:"ServicerFeeMinor"`
	InvestorDueMinor int64 `xml:"InvestorDueMinor"`
}

type xmlReport struct {
	XMLName     xml.Name  `xml:"RemittanceReport"`
	CycleID     string    `xml:"CycleID"`
	ContractID  string    `xml:"ContractID"`
	PeriodStart string    `xml:"PeriodStart"`
	PeriodEnd   string    `xml:"PeriodEnd"`
	Totals      xmlTotals `xml:"Totals"`
	Items       []xmlItem `xml:"Items>Item"`
}

// XML renders the nested report document with cycle totals and one Item per
// loan.
func XML(cycle *models.RemittanceCycle, items []*models.RemittanceItem) ([]byte, error) {
	report := xmlReport{
		CycleID:     cycle.ID,
		ContractID:  cycle.ContractID,
		PeriodStart: cycle.PeriodStart.Format(time.RFC3339),
		PeriodEnd:   cycle.PeriodEnd.Format(time.RFC3339),
		Totals: xmlTotals{
			PrincipalMinor:   cycle.TotalPrincipalMinor,
			InterestMinor:    cycle.TotalInterestMinor,
			FeesMinor:        cycle.TotalFeesMinor,
			ServicerFeeMinor: cycle.ServicerFeeMinor,
			InvestorDueMinor: cycle.InvestorDueMinor,
		},
	}
	for _, item := range items {
		report.Items = append(report.Items, xmlItem{
			LoanID:             item.LoanID,
			PrincipalMinor:     item.PrincipalMinor,
			InterestMinor:      item.InterestMinor,
			FeesMinor:          item.FeesMinor,
			InvestorShareMinor: item.InvestorShareMinor,
			ServicerFeeMinor:   item.ServicerFeeMinor,
		})
	}

	out, err := xml.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}
