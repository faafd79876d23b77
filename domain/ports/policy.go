package ports

// Policy decides which host capabilities a guest may reach.
type Policy interface {
	Allows(namespace, operation string) bool
}
