package mcpserver

import (
	"strings"

	"github.com/jwintz/obsidianp-sub000/internal/formula"
)

// VaultFormat describes the document and collection syntax the graph
// builder understands. Clients read it before composing references or
// collection queries.
const VaultFormat = `# Vault Format

## Documents

Any ` + "`" + `.md` + "`" + ` file outside a hidden directory is a document. Its ID is the
path relative to the vault root, lowercased, without the extension, using
forward slashes (` + "`" + `Topics/Go.md` + "`" + ` becomes ` + "`" + `topics/go` + "`" + `).

` + "```" + `markdown
---
title: Human-readable title   # optional, falls back to the first heading, then the file name
aliases: [other name]          # optional, extra names references may use
tags: [tag-one, tag-two]       # optional, merged with inline #tags
created: 2025-01-15            # optional, used as file.ctime
---

Body text in Markdown.
` + "```" + `

## References

- ` + "`" + `[[target]]` + "`" + ` links to another document by ID, file name or alias.
- ` + "`" + `[[target|label]]` + "`" + ` sets the displayed text.
- ` + "`" + `![[target]]` + "`" + ` embeds the target's content in place. Embeds nest up to
  the configured depth; cycles render a placeholder instead of recursing.
- ` + "`" + `![[target#Heading]]` + "`" + ` embeds the whole target; sections are not extracted.
- Targets with an attachment extension (` + "`" + `.png` + "`" + `, ` + "`" + `.pdf` + "`" + `, ...) are left as assets.

A reference nothing resolves to is reported as an unresolved-reference
diagnostic and rendered as a broken link.

## Collections

A ` + "`" + `.base` + "`" + ` file (YAML) defines a collection over the documents:

` + "```" + `yaml
filters:
  and:
    - file.tag: task
    - 'status != "done"'
formulas:
  overdue: 'due < now()'
views:
  - name: Open
    type: table
    sort: ['due', 'file.name DESC']
    limit: 20
    filters:
      priority: high
` + "```" + `

Filters are a mapping (every key must match, values are literals or
operator objects such as ` + "`" + `{">=": 3}` + "`" + `), a list under ` + "`" + `and` + "`" + `,
` + "`" + `or` + "`" + ` or ` + "`" + `not` + "`" + `, or one of the strings ` + "`" + `prop == "x"` + "`" + `,
` + "`" + `prop != "x"` + "`" + ` and ` + "`" + `hasTag("x")` + "`" + `. Properties are frontmatter
keys, ` + "`" + `file.*` + "`" + ` fields (name, path, folder, ext, size, ctime, mtime, tags,
links) or ` + "`" + `formula.<name>` + "`" + `. Missing values sort last.
`

// vaultFormat is VaultFormat followed by the formula functions available.
func vaultFormat() string {
	return VaultFormat + "\nFormula functions: " + strings.Join(formula.Functions(), ", ") + ".\n"
}
