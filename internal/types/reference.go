package types

import (
	"fmt"
	"strconv"
	"strings"
)

// ReferencePrefix marks a value that points at a row generated in the same
// result: "$ref:<table>:<n>" is row n (1-based) of <table>.
const ReferencePrefix = "$ref:"

type Reference struct {
	Table string
	Row   int
}

func (r Reference) String() string {
	return FormatReference(r.Table, r.Row)
}

func FormatReference(table string, row int) string {
	return ReferencePrefix + table + ":" + strconv.Itoa(row)
}

// ParseReference reports whether v is a reference marker. A value that has
// the prefix but not the "<table>:<n>" shape returns an error.
func ParseReference(v any) (Reference, bool, error) {
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, ReferencePrefix) {
		return Reference{}, false, nil
	}

	body := strings.TrimPrefix(s, ReferencePrefix)
	idx := strings.LastIndex(body, ":")
	if idx <= 0 || idx == len(body)-1 {
		return Reference{}, true, fmt.Errorf("reference %q must look like %s<table>:<row>", s, ReferencePrefix)
	}

	row, err := strconv.Atoi(body[idx+1:])
	if err != nil || row < 1 {
		return Reference{}, true, fmt.Errorf("reference %q has an invalid row number", s)
	}
	return Reference{Table: body[:idx], Row: row}, true, nil
}
