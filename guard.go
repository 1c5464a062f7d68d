package recur

// Authorize reports whether caller is the trusted invoker. An empty trusted
// invoker authorizes nobody.
func Authorize(caller, trusted string) error {
	if trusted == "" || caller != trusted {
		return ErrUnauthorized
	}
	return nil
}
