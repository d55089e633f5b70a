// Package timezone keeps every timestamp of the engine in one application location.
//
// Stay dates, the refund window and ledger periods are all compared in this location:
//
//	now := timezone.Now()                            // current time in the app timezone
//	checkIn, err := timezone.Parse(time.DateOnly, "2026-03-01")
//	day := timezone.Format(entry.PostedAt, time.DateOnly)
//
// The location comes from the APP_TIMEZONE environment variable (an IANA name such as
// "Asia/Dhaka" or "UTC") and is loaded when the package is imported. An unknown name
// falls back to UTC.
package timezone
