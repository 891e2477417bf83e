package redact

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are environment variables whose values are not sensitive.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "NODE_ENV": true, "PORT": true,
	"LC_ALL": true, "LC_CTYPE": true,
}

// Shell masks assignment values in a shell script (FOO=bar becomes FOO=***)
// so that scripts attached to a prompt do not carry secrets to the remote API.
// Safe variables such as PATH and HOME are kept.
func Shell(script string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(script), "")
	if err != nil {
		return regexShell(script)
	}

	changed := false
	syntax.Walk(prog, func(node syntax.Node) bool {
		if n, ok := node.(*syntax.Assign); ok {
			if n.Name != nil && !safeVars[n.Name.Value] && n.Value != nil {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: "***"}}
				changed = true
			}
		}
		return true
	})
	if !changed {
		return script
	}

	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, prog); err != nil {
		return regexShell(script)
	}
	return buf.String()
}

var reAssign = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)

// regexShell is a fallback for scripts that fail to parse.
func regexShell(script string) string {
	return reAssign.ReplaceAllStringFunc(script, func(m string) string {
		name := reAssign.FindStringSubmatch(m)[1]
		if safeVars[name] {
			return m
		}
		return name + "=***"
	})
}
