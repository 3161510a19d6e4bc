package withdrawal

import "testing"

func TestFeeTable(t *testing.T) {
	cases := map[int64]int64{
		50: 0, 109: 0, 209: 0, 500: 0, 1000: 0, 2000: 0,
		150: 9, 101: 9, 199: 9,
		100: 0, 200: 0, 75: 0, 300: 0,
	}
	for amount, want := range cases {
		if got := Fee(amount); got != want {
			t.Fatalf("fee(%d) = %d, want %d", amount, got, want)
		}
	}
}

func TestQuickAmountsAreFeeFree(t *testing.T) {
	amounts := QuickAmounts()
	if len(amounts) != 6 {
		t.Fatalf("expected 6 quick amounts, got %d", len(amounts))
	}
	for _, a := range amounts {
		if Fee(a) != 0 {
			t.Fatalf("quick amount %d must be fee-free", a)
		}
	}
	amounts[0] = 1
	if QuickAmounts()[0] != 50 {
		t.Fatalf("quick amounts must not be mutable")
	}
}
