package template

import "strings"

// SplitStatements splits a SQL script on semicolons, trims surrounding
// whitespace, and drops empty fragments. The split is purely textual:
// semicolons inside string literals are not recognized, which matches how
// scripts are authored for this tool (one statement per semicolon, no
// literals containing ';').
func SplitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		statements = append(statements, part)
	}
	return statements
}

// NormalizeStatements prepares an explicit statement list: whitespace-only
// entries are dropped, everything else passes through verbatim and is never
// re-split on semicolons. A statement given as a list entry may legitimately
// contain ';' inside a literal.
func NormalizeStatements(list []string) []string {
	statements := make([]string, 0, len(list))
	for _, entry := range list {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		statements = append(statements, entry)
	}
	return statements
}
