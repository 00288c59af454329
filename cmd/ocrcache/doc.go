// Command ocrcache is the command-line interface to the OCR result cache.
//
// It runs recognition locally through the same cache and job history the
// daemon uses, inspects and prunes cache entries, reports job statistics and
// starts the HTTP daemon with "ocrcache serve".
package main
