package recorder

import "fmt"

// ConnectionID derives the identity a recorder uses to address its tape.
// Connections may implement ID() string; fmt.Stringer and plain strings are
// used as-is; anything else falls back to its type name.
func ConnectionID(conn any) string {
	switch c := conn.(type) {
	case nil:
		return "nil"
	case interface{ ID() string }:
		return c.ID()
	case fmt.Stringer:
		return c.String()
	case string:
		return c
	default:
		return fmt.Sprintf("%T", conn)
	}
}
