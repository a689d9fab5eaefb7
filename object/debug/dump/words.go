// Copyright (c) 2018 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dump

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Words prints a section as little-endian 32-bit words, four per line.
// A trailing partial word is printed as bytes.
func Words(w io.Writer, name string, data []byte) (err error) {
	if _, err = fmt.Fprintf(w, "%s:\n", name); err != nil {
		return
	}

	for offset := 0; len(data) > 0; {
		fmt.Fprintf(w, "%8x", offset)

		for i := 0; i < 4 && len(data) > 0; i++ {
			if len(data) >= 4 {
				fmt.Fprintf(w, " %08x", binary.LittleEndian.Uint32(data))
				data = data[4:]
				offset += 4
			} else {
				fmt.Fprintf(w, " % x", data)
				offset += len(data)
				data = nil
			}
		}

		fmt.Fprintln(w)
	}

	_, err = fmt.Fprintln(w)
	return
}
