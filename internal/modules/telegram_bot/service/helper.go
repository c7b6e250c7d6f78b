package service

import (
	"fmt"
	"strconv"
	"strings"
)

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func f2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// parseFloat accepts both "0.7" and "0,7".
func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
}
