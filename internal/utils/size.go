package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	sizeUnitStep  = 1024
	negativeSize  = "0b"
	itemSingular  = "item"
	itemPlural    = "items"
	itemCountForm = "%d %s"
)

// sizeUnits covers the whole int64 range; the largest value is just under 8eb.
var sizeUnits = []string{"b", "kb", "mb", "gb", "tb", "pb", "eb"}

// FormatFileSize renders a byte count with binary lower-case units: whole
// bytes below 1kb, one decimal below ten units and whole units above.
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		return negativeSize
	}
	if bytes < sizeUnitStep {
		return strconv.FormatInt(bytes, 10) + sizeUnits[0]
	}
	value := float64(bytes)
	unitIndex := 0
	for value >= sizeUnitStep && unitIndex < len(sizeUnits)-1 {
		value /= sizeUnitStep
		unitIndex++
	}
	if value < 10 {
		return strings.TrimSuffix(fmt.Sprintf("%.1f", value), ".0") + sizeUnits[unitIndex]
	}
	return fmt.Sprintf("%.0f%s", value, sizeUnits[unitIndex])
}

// FormatItemCount renders an item total such as "1 item" or "12 items".
func FormatItemCount(count int) string {
	if count == 1 {
		return fmt.Sprintf(itemCountForm, count, itemSingular)
	}
	return fmt.Sprintf(itemCountForm, count, itemPlural)
}
