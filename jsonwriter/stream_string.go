/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package jsonwriter

import "unicode/utf8"

const hexDigits = "0123456789abcdef"

// safeASCIISet reports, for every byte below utf8.RuneSelf, whether it can
// be copied into a JSON string literal unescaped. Besides the characters
// encoding/json itself refuses to pass through raw (control characters,
// the quote and backslash), this also escapes '<', '>' and '&' so that
// stream output embedded in an HTML document can't be misread as markup;
// this matches encoding/json.Marshal's default (non-Encoder) behavior.
var safeASCIISet = [utf8.RuneSelf]bool{}

func init() {
	for c := rune(0x20); c < utf8.RuneSelf; c++ {
		safeASCIISet[c] = true
	}
	safeASCIISet['"'] = false
	safeASCIISet['\\'] = false
	safeASCIISet['<'] = false
	safeASCIISet['>'] = false
	safeASCIISet['&'] = false
}

// WriteString writes s as a quoted, escaped JSON string.
func (stream *Stream) WriteString(s string) {
	if stream.err != nil {
		return
	}

	stream.writeOneByte('"')

	start := 0
	for i := 0; i < len(s); {
		if b := s[i]; b < utf8.RuneSelf {
			if safeASCIISet[b] {
				i++
				continue
			}
			if start < i {
				stream.write([]byte(s[start:i]))
			}
			switch b {
			case '\\', '"':
				stream.writeTwoBytes('\\', b)
			case '\n':
				stream.writeTwoBytes('\\', 'n')
			case '\r':
				stream.writeTwoBytes('\\', 'r')
			case '\t':
				stream.writeTwoBytes('\\', 't')
			default:
				stream.write([]byte{'\\', 'u', '0', '0', hexDigits[b>>4], hexDigits[b&0xf]})
			}
			i++
			start = i
			continue
		}

		c, size := utf8.DecodeRuneInString(s[i:])
		if c == utf8.RuneError && size == 1 {
			if start < i {
				stream.write([]byte(s[start:i]))
			}
			stream.WriteRawString(`�`)
			i += size
			start = i
			continue
		}
		// U+2028 and U+2029 are valid in JSON but break naive JS eval of a
		// JSON literal; escape them for the same reason encoding/json does.
		if c == '\u2028' || c == '\u2029' {
			if start < i {
				stream.write([]byte(s[start:i]))
			}
			stream.write([]byte{'\\', 'u', '2', '0', '2', hexDigits[c&0xf]})
			i += size
			start = i
			continue
		}
		i += size
	}

	if start < len(s) {
		stream.write([]byte(s[start:]))
	}

	stream.writeOneByte('"')
}
