// Package placeholder finds double-brace fill-in tokens on certificate
// templates.
//
// Detection runs OCR over a fixed set of preprocessed image variants, each
// under several page segmentation modes, because no single pass reliably
// finds both dense body text and isolated {{KEY}} tokens. Tokens are
// matched per OCR word; placeholder text split across words is not
// reassembled. For each normalized key only the highest-confidence
// observation survives, with the first observation winning ties. Boxes are
// tightened to the ink they contain and always stay inside the image.
//
// When the OCR engine is unavailable entirely, detection degrades to three
// generic placeholders (NAME, ROLE, DATE) at fixed proportional positions
// with confidence 50. This is a documented contract for running without
// Tesseract, not a silent failure.
//
// Manual layouts stored in a {template}_placeholders.json sidecar file
// take precedence over detection, letting operators pin exact regions for
// templates OCR struggles with.
package placeholder
