// Command ocrcached runs the OCR result cache HTTP daemon. It is equivalent
// to "ocrcache serve" for service managers that expect a dedicated binary.
//
// Build with -tags tesseract to compile in the Tesseract engine.
package main
