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

package jsonwriter_test

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nimblepool/taskexec/jsonwriter"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Stream", func() {
	It("escapes control characters and quote/backslash the same way encoding/json does", func() {
		// https://go.googlesource.com/go/+/5fae09b/src/encoding/json/encode_test.go
		quoteChar := string(rune(0x22))
		backslashChar := string(rune(0x5c))
		apostropheChar := string(rune(0x27))

		var encodeStringTests = []struct {
			in  string
			out string
		}{
			{string(rune(0x00)), quoteChar + backslashChar + "u0000" + quoteChar},
			{string(rune(0x08)), quoteChar + backslashChar + "u0008" + quoteChar},
			{string(rune(0x09)), quoteChar + backslashChar + "t" + quoteChar},
			{string(rune(0x0a)), quoteChar + backslashChar + "n" + quoteChar},
			{string(rune(0x0d)), quoteChar + backslashChar + "r" + quoteChar},
			{string(rune(0x1f)), quoteChar + backslashChar + "u001f" + quoteChar},
			{quoteChar, quoteChar + backslashChar + quoteChar + quoteChar},
			{backslashChar, quoteChar + backslashChar + backslashChar + quoteChar},
			{apostropheChar, quoteChar + apostropheChar + quoteChar},
		}

		for _, tt := range encodeStringTests {
			var buf strings.Builder
			stream := jsonwriter.NewStream(&buf)
			stream.WriteString(tt.in)
			Expect(stream.Flush()).NotTo(HaveOccurred())
			Expect(buf.String()).To(Equal(tt.out), "input byte %#v", tt.in)
		}
	})

	It("escapes HTML-sensitive characters and line/paragraph separators", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteString("<html>foo &" + string(rune(0x2028)) + " " + string(rune(0x2029)) + "</html>")
		Expect(stream.Flush()).NotTo(HaveOccurred())

		quoteChar := string(rune(0x22))
		backslashChar := string(rune(0x5c))
		expected := quoteChar +
			backslashChar + "u003chtml" +
			backslashChar + "u003efoo " +
			backslashChar + "u0026" +
			backslashChar + "u2028 " +
			backslashChar + "u2029" +
			backslashChar + "u003c/html" +
			backslashChar + "u003e" +
			quoteChar
		Expect(buf.String()).To(Equal(expected))
	})

	It("substitutes the replacement character for invalid UTF-8", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteString("hello" + "\xff" + "world")
		Expect(stream.Flush()).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal(fmt.Sprintf("%q", "hello�world")))
	})

	It("writes ints", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteInt(math.MinInt32)
		stream.WriteMore()
		stream.WriteInt64(math.MaxInt64)
		Expect(stream.Flush()).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("-2147483648,9223372036854775807"))
	})

	It("writes bool and nil", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteBool(true)
		stream.WriteMore()
		stream.WriteBool(false)
		stream.WriteMore()
		stream.WriteNil()
		Expect(stream.Flush()).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("true,false,null"))
	})

	It("writes an object using the field/separator helpers", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteObjectStart()
		stream.WriteObjectField("worker_count")
		stream.WriteInt(4)
		stream.WriteMore()
		stream.WriteObjectField("shutdown")
		stream.WriteBool(false)
		stream.WriteObjectEnd()
		Expect(stream.Flush()).NotTo(HaveOccurred())
		Expect(buf.String()).To(MatchJSON(`{"worker_count": 4, "shutdown": false}`))
	})

	It("writes empty arrays and objects", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteArrayStart()
		stream.WriteEmptyObject()
		stream.WriteMore()
		stream.WriteEmptyArray()
		stream.WriteArrayEnd()
		Expect(stream.Flush()).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal("[{},[]]"))
	})

	It("writes raw, unescaped content", func() {
		var buf strings.Builder
		stream := jsonwriter.NewStream(&buf)
		stream.WriteRawString(`{"already":"json"}`)
		Expect(stream.Flush()).NotTo(HaveOccurred())
		Expect(buf.String()).To(Equal(`{"already":"json"}`))
	})

	It("latches the first write error and refuses further writes", func() {
		failing := &errWriter{err: errors.New("boom")}
		stream := jsonwriter.NewStream(failing)

		// Exceed the internal buffer in one shot to force an immediate write
		// to the underlying (failing) writer.
		stream.WriteString(strings.Repeat("x", 1024))
		Expect(stream.Error()).To(MatchError("boom"))

		stream.WriteBool(true)
		Expect(stream.Flush()).To(MatchError("boom"))
	})
})

type errWriter struct {
	err error
}

func (w *errWriter) Write(p []byte) (int, error) {
	return 0, w.err
}
