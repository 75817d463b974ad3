package calculator

import "testing"

func TestEvaluate(t *testing.T) {
	cases := map[string]float64{
		"1 + 2":        3,
		"(3 + 4) * 2":  14,
		"10 / 4":       2.5,
		"10 % 3":       1,
		"-5 + 2":       -3,
		"2 * (3 + 4 - 1)": 12,
	}
	for expr, want := range cases {
		got, err := Evaluate(expr)
		if err != nil {
			t.Fatalf("Evaluate(%q) error: %v", expr, err)
		}
		if got != want {
			t.Errorf("Evaluate(%q) = %v, want %v", expr, got, want)
		}
	}
}

func TestEvaluateRejectsDivisionByZero(t *testing.T) {
	if _, err := Evaluate("1 / 0"); err == nil {
		t.Fatal("expected error for division by zero")
	}
}

func TestEvaluateRejectsNonArithmetic(t *testing.T) {
	cases := []string{
		"foo(1)",
		"a + b",
		`"string"`,
	}
	for _, expr := range cases {
		if _, err := Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) expected error, got none", expr)
		}
	}
}
