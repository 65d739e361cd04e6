package application

import (
	"math/big"
	"strconv"
	"strings"

	"txfeed/internal/domain"

	"github.com/shopspring/decimal"
)

// parseBigInt reads a decimal or 0x-prefixed hex integer. Anything
// unparseable reads as zero so that classification stays total.
func parseBigInt(raw string) *big.Int {
	value := strings.TrimSpace(raw)
	if value == "" {
		return new(big.Int)
	}
	base := 10
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		value = value[2:]
		base = 16
	}
	parsed, ok := new(big.Int).SetString(value, base)
	if !ok {
		return new(big.Int)
	}
	return parsed
}

// FormatUnits scales an integer amount down by decimals using exact decimal
// arithmetic. The result always carries a fractional part ("1.0", "0.5").
func FormatUnits(raw string, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	out := decimal.NewFromBigInt(parseBigInt(raw), -int32(decimals)).String()
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

// FormatEther scales a wei amount to ether.
func FormatEther(wei string) string {
	return FormatUnits(wei, domain.DefaultDecimals)
}

func isPositive(raw string) bool {
	return parseBigInt(raw).Sign() > 0
}

func parseChainID(raw string) (uint64, bool) {
	value := parseBigInt(raw)
	if value.Sign() <= 0 || !value.IsUint64() {
		return 0, false
	}
	return value.Uint64(), true
}

func formatCount(n int) string {
	return strconv.Itoa(n)
}
