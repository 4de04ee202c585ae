// Package io decodes source images and encodes watermarked results.
//
// # Import
//
// Use [ImportImage] to read an image from a file path, or [ReadImage] to read
// from any io.Reader:
//
//	img, err := io.ImportImage("/tmp/photo.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// JPEG, PNG, GIF, BMP, TIFF and WebP are recognized by content, not by file
// extension. EXIF orientation is applied, so a portrait photo shot sideways
// decodes upright. Decoding failures carry errors.ErrCodeDecode.
//
// # Export
//
// Results are always PNG so the transparent corners survive. Use [ExportPNG]
// to write to a file, or [WritePNG] to write to any io.Writer:
//
//	err := io.ExportPNG(img, io.OutputName("photo.jpg"))
//
// [OutputName] derives the result file name from the source basename:
// "photo.jpg" becomes "watermarker-photo.png". Encoding failures carry
// errors.ErrCodeEncode.
package io
