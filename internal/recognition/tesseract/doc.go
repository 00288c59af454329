// Package tesseract registers a Tesseract OCR engine backed by gosseract.
//
// The engine is compiled only with the "tesseract" build tag because it links
// against libtesseract. Import the package for its side effect:
//
//	import _ "ocrcache/internal/recognition/tesseract"
package tesseract
