// Copyright (c) 2025 OAForge

package upscale

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// TGA header layout (18 bytes):
//   0  id length
//   1  color map type
//   2  image type (2 = uncompressed truecolor, 10 = RLE truecolor)
//   3  color map spec (5 bytes)
//   8  x origin, y origin (2x uint16)
//   12 width, height (2x uint16, little-endian)
//   16 pixel depth
//   17 descriptor (bit 0x20 = top-down row order)

const tgaHeaderLen = 18

// tgaSize reads a texture's dimensions from its TGA header
func tgaSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var hdr [tgaHeaderLen]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return 0, 0, fmt.Errorf("read tga header: %w", err)
	}
	w := int(binary.LittleEndian.Uint16(hdr[12:14]))
	h := int(binary.LittleEndian.Uint16(hdr[14:16]))
	return w, h, nil
}

// normalizeTGA rewrites a truecolor TGA as uncompressed bottom-up, the
// variant every converter agrees on. Files already in that form are copied
// through unchanged; color-mapped and grayscale images pass through too.
func normalizeTGA(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var hdr [tgaHeaderLen]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return fmt.Errorf("read tga header: %w", err)
	}

	imageType := hdr[2]
	depth := int(hdr[16])
	topDown := hdr[17]&0x20 != 0

	needsWork := (imageType == 2 && topDown) || imageType == 10
	if !needsWork || (depth != 24 && depth != 32) {
		return copyFile(src, dest)
	}

	w := int(binary.LittleEndian.Uint16(hdr[12:14]))
	h := int(binary.LittleEndian.Uint16(hdr[14:16]))
	if w == 0 || h == 0 {
		return fmt.Errorf("empty tga image %dx%d", w, h)
	}
	bpp := depth / 8

	// Skip the identification field
	if idLen := int(hdr[0]); idLen > 0 {
		if _, err := io.CopyN(io.Discard, br, int64(idLen)); err != nil {
			return fmt.Errorf("skip tga id field: %w", err)
		}
	}

	pixels := make([]byte, w*h*bpp)
	switch imageType {
	case 2:
		if _, err := io.ReadFull(br, pixels); err != nil {
			return fmt.Errorf("read tga pixels: %w", err)
		}
	case 10:
		if err := decodeTGARLE(br, pixels, bpp); err != nil {
			return fmt.Errorf("decode tga rle: %w", err)
		}
	}

	if topDown {
		flipRows(pixels, w*bpp, h)
	}

	out := hdr
	out[0] = 0 // id field dropped
	out[2] = 2 // uncompressed truecolor
	out[17] = hdr[17] &^ 0x20

	dst, err := os.Create(dest)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(dst)
	if _, err := bw.Write(out[:]); err != nil {
		dst.Close()
		return err
	}
	if _, err := bw.Write(pixels); err != nil {
		dst.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// decodeTGARLE expands run-length packets into a raw pixel buffer
func decodeTGARLE(r io.Reader, pixels []byte, bpp int) error {
	br := bufio.NewReader(r)
	pos := 0
	pixel := make([]byte, bpp)
	for pos < len(pixels) {
		ctrl, err := br.ReadByte()
		if err != nil {
			return err
		}
		count := int(ctrl&0x7f) + 1
		if ctrl&0x80 != 0 {
			// Run packet: one pixel repeated
			if _, err := io.ReadFull(br, pixel); err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				if pos+bpp > len(pixels) {
					return fmt.Errorf("rle run overflows image")
				}
				copy(pixels[pos:], pixel)
				pos += bpp
			}
		} else {
			// Raw packet: count literal pixels
			n := count * bpp
			if pos+n > len(pixels) {
				return fmt.Errorf("rle packet overflows image")
			}
			if _, err := io.ReadFull(br, pixels[pos:pos+n]); err != nil {
				return err
			}
			pos += n
		}
	}
	return nil
}

// flipRows reverses row order in place
func flipRows(pixels []byte, rowLen, rows int) {
	tmp := make([]byte, rowLen)
	for top, bottom := 0, rows-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := pixels[top*rowLen : (top+1)*rowLen]
		b := pixels[bottom*rowLen : (bottom+1)*rowLen]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}
