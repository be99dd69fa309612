package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the differences between the supported SQL backends.
type Dialect struct {
	Name string
	// Numbered uses $1..$n placeholders instead of ?.
	Numbered bool
	// TextTime stores timestamps as sortable UTC text.
	TextTime bool
	// Returning fetches generated ids with RETURNING instead of LastInsertId.
	Returning bool
}

var (
	MySQL    = Dialect{Name: "mysql"}
	Postgres = Dialect{Name: "postgres", Numbered: true, Returning: true}
	SQLite   = Dialect{Name: "sqlite", TextTime: true}
)

// timeLayout sorts lexically in the same order as time.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Rebind rewrites ? placeholders for the dialect.
func (d Dialect) Rebind(q string) string {
	if !d.Numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) timeArg(t time.Time) any {
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	if d.TextTime {
		return t.Format(timeLayout)
	}
	return t
}

// timeCol scans a timestamp stored either natively or as text.
type timeCol struct{ t *time.Time }

func (c timeCol) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c.t = time.Time{}
		return nil
	case time.Time:
		*c.t = v.UTC()
		return nil
	case []byte:
		return c.parse(string(v))
	case string:
		return c.parse(v)
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (c timeCol) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			*c.t = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time %q", s)
}
