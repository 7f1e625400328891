// Package render draws replacement text onto certificate templates.
//
// Rendering never mutates its input: the template image is copied first,
// so one decoded template can be shared read-only by many concurrent
// renders. For a placeholder box the background color is inferred from a
// ring of samples around the box, the box plus a small margin is erased
// with that color, and the text is drawn centered in the box at the
// largest font size that fits. Font resolution walks a chain of
// configured faces and ends at fonts compiled into the binary, so
// rendering works on hosts with no fonts installed at all.
package render
