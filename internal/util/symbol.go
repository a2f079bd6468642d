package util

import (
	"regexp"
	"strings"
)

var symbolRe = regexp.MustCompile(`^(sh|sz|bj)?(\d+)$`)

// CleanSymbol 清理ETF代码, 去掉sh/sz/bj市场前缀
func CleanSymbol(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if m := symbolRe.FindStringSubmatch(s); m != nil {
		return m[2]
	}
	return s
}
