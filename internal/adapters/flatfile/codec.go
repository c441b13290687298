package flatfile

import "strings"

// Section markers. Matching on read is case-insensitive so that files
// written as "SECTION:UserS" still load.
const (
	sectionPrefix      = "SECTION:"
	sectionUsers       = "USERS"
	sectionGroups      = "GROUPS"
	sectionMemberships = "MEMBERSHIPS"
	sectionContacts    = "CONTACTS"
	sectionPosts       = "POSTS"
	sectionAudit       = "AUDIT"
)

var escaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, ",", `\,`)

// escape makes a free-text field safe for one comma-separated line.
func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i == len(s)-1 {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitFields splits line on unescaped commas into at most n fields; the
// last field keeps the rest of the line, so unescaped commas in trailing
// text survive. Fields are returned unescaped.
func splitFields(line string, n int) []string {
	fields := make([]string, 0, n)
	start := 0
	for i := 0; i < len(line) && len(fields) < n-1; i++ {
		switch line[i] {
		case '\\':
			i++
		case ',':
			fields = append(fields, line[start:i])
			start = i + 1
		}
	}
	fields = append(fields, line[start:])
	for i, f := range fields {
		fields[i] = unescape(f)
	}
	return fields
}

func joinFields(fields ...string) string {
	return strings.Join(fields, ",")
}
