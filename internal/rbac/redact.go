package rbac

// RestrictedPlaceholder replaces restricted attribute values for viewers
// lacking the view_system_notes capability.
const RestrictedPlaceholder = "[restricted]"

// Restricted is implemented by records carrying attributes that only
// privileged roles may see.
type Restricted interface {
	// RedactRestricted overwrites every restricted attribute with the
	// placeholder. Implementations must be idempotent.
	RedactRestricted(placeholder string)
}

// Redact strips restricted attributes from rec unless the viewer role holds
// view_system_notes. It mutates rec in place; redacting an already-redacted
// record is a no-op. Redaction happens in the service layer before any record
// is handed to serialization, so a handler can never leak a restricted value.
func Redact(viewer Role, rec Restricted) {
	if rec == nil {
		return
	}
	if viewer.Has(CapViewSystemNotes) {
		return
	}
	rec.RedactRestricted(RestrictedPlaceholder)
}
