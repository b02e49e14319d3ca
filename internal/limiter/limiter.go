package limiter

// Slots bounds the number of conversions running at once. Rasterizing a
// large PDF at high DPI holds a lot of memory, so small deployments run
// with one or two slots.
type Slots struct {
	sem chan struct{}
}

// New creates a limiter with n slots (minimum 1).
func New(n int) *Slots {
	if n <= 0 {
		n = 1
	}
	return &Slots{sem: make(chan struct{}, n)}
}

// Allow tries to reserve a slot without blocking.
// Returns a release function and true if allowed; otherwise nil-op,false.
func (s *Slots) Allow() (func(), bool) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, true
	default:
		return func() {}, false
	}
}
