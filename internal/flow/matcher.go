package flow

import (
	"strconv"
	"strings"

	"github.com/fundtrail/trace-service/internal/domain"
)

// MatchSideRecords finds at most one side-record per table for the target
// account. Account identifiers are compared after whitespace trimming; the
// first matching row wins even if later rows also match. Absence of a match
// is not an error.
func MatchSideRecords(targetAccount string, atmRows []domain.ATMRow, chequeRows []domain.ChequeRow, holdRows []domain.HoldRow) domain.SideRecords {
	target := strings.TrimSpace(targetAccount)
	var records domain.SideRecords

	for i := range atmRows {
		if strings.TrimSpace(atmRows[i].Account) == target {
			records.ATM = &domain.ATMDetail{
				ATMID:    atmRows[i].ATMID,
				Amount:   ParseAmount(atmRows[i].Amount),
				Date:     atmRows[i].Date,
				Location: atmRows[i].Location,
			}
			break
		}
	}

	for i := range chequeRows {
		if strings.TrimSpace(chequeRows[i].Account) == target {
			records.Cheque = &domain.ChequeDetail{
				ChequeNo:   chequeRows[i].ChequeNo,
				Amount:     ParseAmount(chequeRows[i].Amount),
				Date:       chequeRows[i].Date,
				BranchCode: chequeRows[i].BranchCode,
			}
			break
		}
	}

	for i := range holdRows {
		if strings.TrimSpace(holdRows[i].Account) == target {
			records.Hold = &domain.HoldDetail{
				TransferID: holdRows[i].TransferID,
				Amount:     ParseAmount(holdRows[i].Amount),
				Date:       holdRows[i].Date,
			}
			break
		}
	}

	return records
}

// ParseAmount coerces a raw spreadsheet cell to a float. Thousands
// separators are stripped; anything unparseable becomes 0.0 rather than
// failing the row.
func ParseAmount(raw string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if cleaned == "" {
		return 0.0
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0
	}
	return v
}
