package tools

// Hints describes a tool's side effects for MCP clients.
type Hints struct {
	ReadOnly    bool
	Destructive bool
	Idempotent  bool
	OpenWorld   bool
}

func (h Hints) Map() map[string]bool {
	return map[string]bool{
		"readOnlyHint":    h.ReadOnly,
		"destructiveHint": h.Destructive,
		"idempotentHint":  h.Idempotent,
		"openWorldHint":   h.OpenWorld,
	}
}

// ReadOnlyAnnotations fits pure translations and listings.
func ReadOnlyAnnotations() map[string]bool {
	return Hints{ReadOnly: true, Idempotent: true}.Map()
}

// SafeWriteAnnotations fits tools that write files they own, such as
// conversion outputs.
func SafeWriteAnnotations() map[string]bool {
	return Hints{Idempotent: true}.Map()
}

func DestructiveAnnotations() map[string]bool {
	return Hints{Destructive: true}.Map()
}
