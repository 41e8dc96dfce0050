package export

import (
	"strconv"
	"strings"
)

func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

func formatAverage(avg *float64) string {
	if avg == nil {
		return "-"
	}
	return strconv.FormatFloat(*avg, 'f', 2, 64)
}

func formatRank(rank *int, classSize int) string {
	if rank == nil {
		return "- / " + strconv.Itoa(classSize)
	}
	return strconv.Itoa(*rank) + " / " + strconv.Itoa(classSize)
}
