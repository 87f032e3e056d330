// Package sanitizer normalises and masks user-supplied contact data.
//
// Transforms are plain func(string) string values and combine with Apply
// and Compose:
//
//	clean := sanitizer.Compose(sanitizer.RemoveControlChars, sanitizer.NormalizeWhitespace)
//	name := clean(input.Name)
//
// Masking helpers such as MaskPhone exist for log output; they are not a
// substitute for access control.
package sanitizer
