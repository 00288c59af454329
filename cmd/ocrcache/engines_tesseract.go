//go:build tesseract

package main

import (
	_ "ocrcache/internal/recognition/tesseract"
)
