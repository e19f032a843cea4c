package invoice

import (
	"fmt"
	"time"

	"github.com/sentinelshop/storefront-api/pkg/util"
)

// NewReservationNumber is the number given to a pending order before the
// payment provider is contacted: INV-<8 random chars>.
func NewReservationNumber() (string, error) {
	code, err := util.RandomCode(8)
	if err != nil {
		return "", fmt.Errorf("generate reservation number: %w", err)
	}
	return "INV-" + code, nil
}

// NewNumber is the final number assigned on confirmation:
// INV-<YYYYMMDD>-<4 digits>.
func NewNumber(at time.Time) (string, error) {
	suffix, err := util.RandomDigits(4)
	if err != nil {
		return "", fmt.Errorf("generate invoice number: %w", err)
	}
	return fmt.Sprintf("INV-%s-%s", at.UTC().Format("20060102"), suffix), nil
}

// FileName is the deterministic artifact name for an invoice number.
func FileName(number string) string {
	return number + ".pdf"
}
