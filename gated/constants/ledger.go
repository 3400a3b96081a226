package constant

const (
	// DefaultDecimals is the precision used when neither the ledger nor the reserve declares one.
	DefaultDecimals int32 = 18
	// MaxDecimals bounds the precision accepted for ledger units.
	MaxDecimals int32 = 36
	// MaxAmountDigits bounds the digits of an amount on either side of the
	// decimal point. It covers the full range of a 256-bit token balance.
	MaxAmountDigits = 78
	// MaxIdentityLength is the maximum byte length of a participant identity.
	MaxIdentityLength = 128
	// MaxBundleSteps bounds the number of hops accepted in a single bundle.
	MaxBundleSteps = 64
	// EntityLedger is the entity type used in business error responses for ledger operations.
	EntityLedger = "Ledger"
	// EntityBundle is the entity type used in business error responses for bundle operations.
	EntityBundle = "Bundle"
)
