package types

// FundingType is the closed set of program funding instruments.
type FundingType string

const (
	FundingGrant  FundingType = "grant"
	FundingLoan   FundingType = "loan"
	FundingEquity FundingType = "equity"
	FundingInKind FundingType = "in-kind"
)

// IsValidFundingType reports whether ft is a recognized funding instrument.
func IsValidFundingType(ft FundingType) bool {
	switch ft {
	case FundingGrant, FundingLoan, FundingEquity, FundingInKind:
		return true
	default:
		return false
	}
}
