package pipeline

import "fmt"

// BuildSignature derives the concrete, unabstracted call signature the
// Permission Checker matches rules against, e.g.
// `Bash(command:git push origin main)` or `Read(file_path:/ws/a.go)`.
// permission.Abstract then further collapses signatures like this one into
// a suggested rule pattern; this function produces the exact-call form.
func BuildSignature(toolName string, args map[string]any) string {
	for _, key := range []string{"command", "file_path", "path", "url", "domain"} {
		if v, ok := args[key]; ok {
			return fmt.Sprintf("%s(%s:%v)", toolName, key, v)
		}
	}
	return toolName
}
