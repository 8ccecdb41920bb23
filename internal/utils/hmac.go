package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// LoanTermsHMAC stamps the immutable terms of a loan so later tampering with
// the persisted row is detectable.
func LoanTermsHMAC(memberID int64, principal decimal.Decimal, termMonths int, rateID int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d|%s|%d|%d", memberID, principal.String(), termMonths, rateID)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyLoanTermsHMAC checks a stored stamp against the loan's terms.
func VerifyLoanTermsHMAC(stamp string, memberID int64, principal decimal.Decimal, termMonths int, rateID int64, secret string) bool {
	expected := LoanTermsHMAC(memberID, principal, termMonths, rateID, secret)
	return hmac.Equal([]byte(stamp), []byte(expected))
}
