package gateway

import (
	"testing"

	"github.com/skyserve/skyserve-backend/pkg/enums"
)

func TestSignParamsIsStableAcrossKeyOrder(t *testing.T) {
	a := SignParams("secret", map[string]string{"orderId": "o-1", "amount": "5000"})
	b := SignParams("secret", map[string]string{"amount": "5000", "orderId": "o-1"})
	if a != b {
		t.Fatalf("signature depends on key order: %s vs %s", a, b)
	}
}

func TestVerifySignature(t *testing.T) {
	params := map[string]string{"orderId": "o-1", "resultCode": "0", "transId": "t-9"}
	sig := SignParams("secret", params)

	if !VerifySignature("secret", params, sig) {
		t.Fatal("expected valid signature to verify")
	}
	if VerifySignature("secret", params, sig+"00") {
		t.Fatal("tampered signature should not verify")
	}
	if VerifySignature("other-secret", params, sig) {
		t.Fatal("wrong secret should not verify")
	}
}

func TestClassifyResultCode(t *testing.T) {
	cases := map[int]enums.PaymentStatus{
		0:    enums.PaymentStatusSuccess,
		1000: enums.PaymentStatusPending,
		7000: enums.PaymentStatusPending,
		7002: enums.PaymentStatusPending,
		9000: enums.PaymentStatusPending,
		1001: enums.PaymentStatusFailed,
		42:   enums.PaymentStatusFailed,
		-1:   enums.PaymentStatusFailed,
	}
	for code, want := range cases {
		if got := ClassifyResultCode(code); got != want {
			t.Errorf("code %d: expected %s got %s", code, want, got)
		}
	}
}
