package relay

// AdmissionController decides whether a publish request may proceed before it
// reaches business logic. The relay engine consumes it as a plain yes/no
// decision keyed by client identity (API key, or caller address as a
// fallback); the actual limiting policy lives outside the engine.
type AdmissionController interface {
	// Allow reports whether a request under the given key is admitted.
	Allow(key string) bool
}

// AllowAllAdmission is the default AdmissionController: every request is
// admitted. Use this when rate limiting is handled elsewhere or not needed.
type AllowAllAdmission struct{}

// Allow always admits.
func (AllowAllAdmission) Allow(_ string) bool { return true }
