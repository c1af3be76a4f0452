package alidayu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultXMLRoot is the anonymous document element written by EncodeXML and
// unwrapped again by DecodeXML.
const DefaultXMLRoot = "xml"

// sortedKeys returns the keys of params in byte order
func sortedKeys(params map[string]string) []string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SigningString concatenates key and value of every parameter, keys sorted
// ascending by byte value, with no separators.
func SigningString(params map[string]string) string {
	var b strings.Builder
	for _, k := range sortedKeys(params) {
		b.WriteString(k)
		b.WriteString(params[k])
	}
	return b.String()
}

// EncodeJSON renders v as JSON where every scalar is a quoted string, as the
// gateway requires for numeric values too. Mapping keys are written in byte order.
func EncodeJSON(v Value) []byte {
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.Bytes()
}

func writeJSON(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case KindMap:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			writeJSON(buf, v.m[k])
		}
		buf.WriteByte('}')
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, item)
		}
		buf.WriteByte(']')
	default:
		writeJSONString(buf, v.text)
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	// Marshalling a string cannot fail.
	quoted, _ := json.Marshal(s)
	buf.Write(quoted)
}

// EncodeXML renders v below a root element. Sequence entries and numeric
// mapping keys become <item id="N"> elements; scalars are written as CDATA
// with control characters removed.
func EncodeXML(v Value, root string) ([]byte, error) {
	if root == "" {
		root = DefaultXMLRoot
	}
	if !isXMLName(root) {
		return nil, fmt.Errorf("invalid xml element name %q", root)
	}
	var buf bytes.Buffer
	buf.WriteString("<" + root + ">")
	if err := writeXMLContent(&buf, v); err != nil {
		return nil, err
	}
	buf.WriteString("</" + root + ">")
	return buf.Bytes(), nil
}

func writeXMLContent(buf *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindMap:
		for _, k := range v.Keys() {
			if err := writeXMLElement(buf, k, v.m[k]); err != nil {
				return err
			}
		}
	case KindList:
		for i, item := range v.list {
			if err := writeXMLElement(buf, strconv.Itoa(i), item); err != nil {
				return err
			}
		}
	case KindString, KindNumber:
		writeCDATA(buf, v.text)
	}
	return nil
}

func writeXMLElement(buf *bytes.Buffer, key string, v Value) error {
	name := key
	if isNumericKey(key) {
		buf.WriteString(`<item id="` + key + `">`)
		name = "item"
	} else if isXMLName(key) {
		buf.WriteString("<" + key + ">")
	} else {
		return fmt.Errorf("invalid xml element name %q", key)
	}
	if err := writeXMLContent(buf, v); err != nil {
		return err
	}
	buf.WriteString("</" + name + ">")
	return nil
}

// writeCDATA writes s as CDATA. Carriage returns are emitted as character
// references between sections because parsers normalise a literal CR to LF,
// even inside CDATA.
func writeCDATA(buf *bytes.Buffer, s string) {
	s = StripControl(s)
	for i, part := range strings.Split(s, "\r") {
		if i > 0 {
			buf.WriteString("&#xD;")
			if part == "" {
				continue
			}
		}
		buf.WriteString("<![CDATA[")
		buf.WriteString(strings.ReplaceAll(part, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]>")
	}
}

// StripControl removes 0x00-0x1F except tab, line feed and carriage return
func StripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

func isNumericKey(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return false
		}
	}
	return true
}
