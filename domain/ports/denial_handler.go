package ports

// DenialHandler is notified when a Policy rejects a host call.
type DenialHandler interface {
	OnDenial(namespace, operation, reason string)
}
