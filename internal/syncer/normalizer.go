package syncer

import (
	"fmt"
	"strconv"
	"strings"

	"pvz-sync/internal/sheets"
)

// Header aliases probed per field, in order. The source sheet has been
// maintained by hand for years, so the key column in particular has appeared
// under several labels.
var (
	keyAliases               = []string{"PVZ ID", "pvzId", "Site ID", "ID"}
	regionAliases            = []string{"Region", "region"}
	addressAliases           = []string{"Address", "address"}
	serviceNameAliases       = []string{"Service", "Service Name", "service"}
	statusDateAliases        = []string{"Status Date", "statusDate"}
	statusNameAliases        = []string{"Status", "status"}
	organizationAliases      = []string{"Organization", "organization", "Org"}
	organizationPhoneAliases = []string{"Phone", "Organization Phone", "phone"}
	transactionDateAliases   = []string{"Transaction Date", "transactionDate"}
	transactionAmountAliases = []string{"Amount", "Transaction Amount", "amount"}
	postalCodeAliases        = []string{"Postal Code", "postalCode", "ZIP"}
	fittingRoomAliases       = []string{"Fitting Room", "fittingRoom"}
)

// NormalizeResult carries the validated rows and the parallel skip records
// of one batch.
type NormalizeResult struct {
	Valid   []ValidatedRow
	Skipped []SkippedRow
}

// NormalizeRows validates and normalizes a batch of raw source rows.
// Rows without a natural key are skipped as missing_key; a key seen earlier
// in the same batch is skipped as duplicate_in_batch (first occurrence wins).
// Neither aborts the batch.
func NormalizeRows(rows []sheets.Row) NormalizeResult {
	result := NormalizeResult{}
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		key := lookupField(row, keyAliases)
		if key == "" {
			result.Skipped = append(result.Skipped, SkippedRow{
				Key:    fmt.Sprintf("row %d", i+2), // +2: 1-based, after the header row
				Reason: SkipReasonMissingKey,
			})
			continue
		}
		if _, dup := seen[key]; dup {
			result.Skipped = append(result.Skipped, SkippedRow{
				Key:    key,
				Reason: SkipReasonDuplicateInBatch,
			})
			continue
		}
		seen[key] = struct{}{}

		result.Valid = append(result.Valid, ValidatedRow{
			ExternalID:        key,
			Region:            lookupField(row, regionAliases),
			Address:           lookupField(row, addressAliases),
			ServiceName:       lookupField(row, serviceNameAliases),
			StatusName:        lookupField(row, statusNameAliases),
			StatusDate:        lookupField(row, statusDateAliases),
			TransactionDate:   lookupField(row, transactionDateAliases),
			TransactionAmount: lookupField(row, transactionAmountAliases),
			PostalCode:        lookupField(row, postalCodeAliases),
			FittingRoom:       lookupField(row, fittingRoomAliases),
			OrganizationName:  lookupField(row, organizationAliases),
			OrganizationPhone: lookupField(row, organizationPhoneAliases),
		})
	}

	return result
}

// lookupField returns the first non-empty value among the alias headers.
func lookupField(row sheets.Row, aliases []string) string {
	for _, alias := range aliases {
		if raw, ok := row[alias]; ok {
			if s := cellString(raw); s != "" {
				return s
			}
		}
	}
	return ""
}

// cellString coerces a raw cell value to a string. Numbers are formatted
// with the minimal representation that round-trips, so amounts like 1250.50
// come through as "1250.5" rather than a locale-rounded float. The source
// renders dates as display strings already.
func cellString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(value)
	case float64:
		if value == float64(int64(value)) {
			return strconv.FormatInt(int64(value), 10)
		}
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
