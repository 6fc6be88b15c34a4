package common

import "strings"

// QuoteDouble quotes an identifier with ANSI double quotes.
func QuoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// LessForeignKey orders keys by column, then referenced table and column.
func LessForeignKey(aCol, aTable, aRef, bCol, bTable, bRef string) bool {
	if aCol != bCol {
		return aCol < bCol
	}
	if aTable != bTable {
		return aTable < bTable
	}
	return aRef < bRef
}
