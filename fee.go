package strand

// Rent parameters of the underlying ledger's account model.
const (
	lamportsPerByteYear = 3480
	rentExemptYears     = 2
	accountOverhead     = 128
	transactionFee      = 5000
)

// AnchorFee is the cost of anchoring a record occupying space bytes:
// the rent-exempt minimum balance for an account of that size
// plus the flat transaction fee.
func AnchorFee(space int) uint64 {
	rent := uint64(accountOverhead+space) * lamportsPerByteYear * rentExemptYears
	return rent + transactionFee
}
