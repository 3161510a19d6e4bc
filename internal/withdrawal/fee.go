package withdrawal

// Curated quick-pick amounts. They are withdrawn without a fee.
var quickAmounts = []int64{50, 109, 209, 500, 1000, 2000}

const bandFee = 9

// QuickAmounts returns the curated fee-free amounts in display order.
func QuickAmounts() []int64 {
	return append([]int64(nil), quickAmounts...)
}

// Fee returns the fee withheld from a withdrawal of amount coins. Curated
// amounts are free, amounts strictly between 100 and 200 pay a flat 9 and
// everything else is free.
func Fee(amount int64) int64 {
	for _, free := range quickAmounts {
		if amount == free {
			return 0
		}
	}
	if amount > 100 && amount < 200 {
		return bandFee
	}
	return 0
}
