package service

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"stockflow/internal/repository"
)

// FallbackSKUPrefix is used for products without a category.
const FallbackSKUPrefix = "GEN"

const skuPrefixLength = 3

// SKUPrefix derives the SKU prefix from a category name: its first three
// letters with whitespace removed, upper-cased.
func SKUPrefix(categoryName string) string {
	var b strings.Builder
	n := 0
	for _, r := range categoryName {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
		if n++; n == skuPrefixLength {
			break
		}
	}
	if b.Len() == 0 {
		return FallbackSKUPrefix
	}
	return b.String()
}

// NextSKUNumber returns the number following sku's numeric suffix, or 1 when
// the suffix cannot be parsed.
func NextSKUNumber(sku string) int {
	i := strings.LastIndex(sku, "-")
	if i < 0 {
		return 1
	}
	n, err := strconv.Atoi(sku[i+1:])
	if err != nil || n < 0 {
		return 1
	}
	return n + 1
}

func FormatSKU(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

func isSKUConflict(err error) bool {
	return repository.IsUniqueViolation(err, "sku")
}
