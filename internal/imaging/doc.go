// Package imaging provides the pixel-level operations behind template
// analysis and certificate rendering.
//
// This package implements image loading and saving, the preprocessing
// variants fed to OCR, background color estimation around placeholder
// regions, and ink-boundary tightening. All operations work with standard
// Go image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left) and Max is exclusive
//     (bottom-right), matching image.Rectangle
//
// # Mutability
//
// Loading returns freshly decoded images that the caller owns. Functions in
// this package never mutate their inputs; transformations allocate and
// return new images. Callers that render onto a shared template must clone
// it first, which is what CloneRGBA is for.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as unreadable or
// undecodable files and encoding failures during output. Geometry helpers
// prefer clamping over errors: a region partially outside the image is cut
// down to the overlap rather than rejected.
package imaging
