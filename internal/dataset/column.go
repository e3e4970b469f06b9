package dataset

import "strings"

// Column identifies a table column as a base name plus an ordered list of
// bracket tags. It renders as "base_[t1]_[t2]".
type Column struct {
	Base string
	Tags []string
}

// Plain returns an untagged column.
func Plain(name string) Column { return Column{Base: name} }

// Name renders the column identifier.
func (c Column) Name() string {
	if len(c.Tags) == 0 {
		return c.Base
	}
	var b strings.Builder
	b.WriteString(c.Base)
	for _, t := range c.Tags {
		b.WriteString("_[")
		b.WriteString(t)
		b.WriteString("]")
	}
	return b.String()
}

// WithTag returns a copy of c with tag appended.
func (c Column) WithTag(tag string) Column {
	tags := make([]string, 0, len(c.Tags)+1)
	tags = append(tags, c.Tags...)
	tags = append(tags, tag)
	return Column{Base: c.Base, Tags: tags}
}

// WithLeadingTag returns a copy of c with tag inserted before existing tags.
func (c Column) WithLeadingTag(tag string) Column {
	tags := make([]string, 0, len(c.Tags)+1)
	tags = append(tags, tag)
	tags = append(tags, c.Tags...)
	return Column{Base: c.Base, Tags: tags}
}

// ParseColumn recovers a Column from a rendered name. Trailing "_[tag]"
// groups become tags; anything else is the base.
func ParseColumn(name string) Column {
	var tags []string
	rest := name
	for strings.HasSuffix(rest, "]") {
		open := strings.LastIndex(rest, "_[")
		if open <= 0 {
			break
		}
		tag := rest[open+2 : len(rest)-1]
		if strings.ContainsAny(tag, "[]") {
			break
		}
		tags = append([]string{tag}, tags...)
		rest = rest[:open]
	}
	return Column{Base: rest, Tags: tags}
}
