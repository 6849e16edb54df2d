package responder

import (
	"strconv"
	"strings"
)

// mangle appends or increments a numeric "-N" suffix on name, to resolve a
// probe conflict (spec §4.2 "Conflict detection during probe"). The first
// mangle of a clean name produces "name-2"; a name already ending in "-N"
// becomes "name-N+1".
func mangle(name string) string {
	i := strings.LastIndexByte(name, '-')
	if i < 0 {
		return name + "-2"
	}

	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return name + "-2"
	}

	return name[:i] + "-" + strconv.Itoa(n+1)
}
