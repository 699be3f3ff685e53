// internal/utils/ether.go
package utils

import (
	"errors"
	"math/big"
	"strings"
)

const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseEther converts a decimal ether amount such as "0.25" to wei.
func ParseEther(value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "-") || strings.HasPrefix(value, "+") {
		return nil, ErrInvalidAmount
	}

	whole, frac, _ := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > etherDecimals {
		return nil, ErrInvalidAmount
	}
	frac += strings.Repeat("0", etherDecimals-len(frac))

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, ErrInvalidAmount
	}
	return wei, nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)

	whole, rem := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))
	out := whole.String()
	if rem.Sign() != 0 {
		frac := rem.String()
		frac = strings.Repeat("0", etherDecimals-len(frac)) + frac
		out += "." + strings.TrimRight(frac, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// ParseWei parses a base-10 wei amount.
func ParseWei(value string) (*big.Int, error) {
	wei, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || wei.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	return wei, nil
}
