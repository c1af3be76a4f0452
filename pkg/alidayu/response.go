package alidayu

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strconv"
	"strings"
)

// ErrorResponseKey is the key of the gateway's error envelope
const ErrorResponseKey = "error_response"

// Result is a successful gateway reply
type Result struct {
	Body Value
	Raw  []byte
}

// ResponseKey returns the key the gateway uses for a method's payload,
// e.g. alibaba.aliqin.fc.sms.num.send -> alibaba_aliqin_fc_sms_num_send_response.
func ResponseKey(method string) string {
	return strings.ReplaceAll(method, ".", "_") + "_response"
}

// Response returns the payload stored under ResponseKey(method)
func (r *Result) Response(method string) (Value, bool) {
	return r.Body.Get(ResponseKey(method))
}

// ParseResponse decodes body in the given format and turns an embedded
// error_response into an *APIError.
func ParseResponse(body []byte, format Format) (*Result, error) {
	v, err := Decode(body, format)
	if err != nil {
		return nil, err
	}
	if apiErr := errorFromEnvelope(v); apiErr != nil {
		return nil, apiErr
	}
	return &Result{Body: v, Raw: body}, nil
}

// Decode converts body into a Value. An unsupported format yields a
// *ConfigurationError, an unparseable body a *DecodeError.
func Decode(body []byte, format Format) (Value, error) {
	if err := format.Validate(); err != nil {
		return Value{}, err
	}

	var (
		v   Value
		err error
	)
	switch format {
	case FormatJSON:
		v, err = DecodeJSON(body)
	case FormatXML:
		v, err = DecodeXML(body)
	}
	if err != nil {
		return Value{}, &DecodeError{Format: format, Err: err}
	}
	return v, nil
}

func errorFromEnvelope(v Value) *APIError {
	errResp, ok := v.Get(ErrorResponseKey)
	if !ok || errResp.IsEmpty() {
		return nil
	}
	if errResp.IsScalar() && strings.TrimSpace(errResp.Text()) == "" {
		return nil
	}
	if errResp.Kind() != KindMap {
		return newAPIError(0, errResp.Text(), "", "")
	}

	field := func(key string) string {
		child, _ := errResp.Get(key)
		return strings.TrimSpace(child.Text())
	}

	return newAPIError(parseCode(field("code")), field("msg"), field("sub_code"), field("sub_msg"))
}

func parseCode(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

// DecodeJSON parses a JSON document into a Value. Numbers keep their
// literal text; booleans become the strings "true" and "false".
func DecodeJSON(body []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("unexpected data after top-level value")
	}
	return fromJSON(raw), nil
}

func fromJSON(raw interface{}) Value {
	switch t := raw.(type) {
	case string:
		return String(t)
	case json.Number:
		return Number(t.String())
	case bool:
		return String(strconv.FormatBool(t))
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, child := range t {
			m[k] = fromJSON(child)
		}
		return Map(m)
	case []interface{}:
		items := make([]Value, len(t))
		for i, child := range t {
			items[i] = fromJSON(child)
		}
		return List(items...)
	}
	return Null()
}

type xmlNode struct {
	name     string
	attrs    []xml.Attr
	children []*xmlNode
	text     strings.Builder
}

// DecodeXML parses an XML document into the same Value shape DecodeJSON
// produces: child elements become mapping keys, text and CDATA become
// string leaves and repeated siblings become sequences. The root element
// name is kept as the single top-level key, except for the anonymous
// <xml> wrapper written by EncodeXML, which is unwrapped.
func DecodeXML(body []byte) (Value, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		root  *xmlNode
		stack []*xmlNode
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Value{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &xmlNode{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return Value{}, errors.New("multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if len(bytes.TrimSpace(t)) > 0 {
				return Value{}, errors.New("text outside root element")
			}
		}
	}
	if root == nil {
		return Value{}, errors.New("no root element")
	}

	if root.name == DefaultXMLRoot && len(root.attrs) == 0 {
		if len(root.children) == 0 && strings.TrimSpace(root.text.String()) == "" {
			return Map(nil), nil
		}
		return root.value(), nil
	}
	return Map(map[string]Value{root.name: root.value()}), nil
}

func (n *xmlNode) value() Value {
	if len(n.children) == 0 {
		if len(n.attrs) == 0 {
			return String(n.text.String())
		}
		m := map[string]Value{"@attributes": attrValue(n.attrs)}
		if text := n.text.String(); strings.TrimSpace(text) != "" {
			m["@text"] = String(text)
		}
		return Map(m)
	}

	if n.isItemList() {
		items := make([]Value, len(n.children))
		for i, child := range n.children {
			items[i] = child.contentValue()
		}
		return List(items...)
	}

	grouped := make(map[string][]Value)
	for _, child := range n.children {
		grouped[child.name] = append(grouped[child.name], child.value())
	}
	m := make(map[string]Value, len(grouped)+1)
	for name, values := range grouped {
		if len(values) == 1 {
			m[name] = values[0]
		} else {
			m[name] = List(values...)
		}
	}
	if len(n.attrs) > 0 {
		m["@attributes"] = attrValue(n.attrs)
	}
	return Map(m)
}

// contentValue converts an <item id="N"> entry, dropping the id attribute
func (n *xmlNode) contentValue() Value {
	stripped := &xmlNode{name: n.name, children: n.children}
	stripped.text.WriteString(n.text.String())
	return stripped.value()
}

// isItemList reports whether every child is an <item id="N"> sequence entry
func (n *xmlNode) isItemList() bool {
	for _, child := range n.children {
		if child.name != "item" || len(child.attrs) != 1 || child.attrs[0].Name.Local != "id" || !isNumericKey(child.attrs[0].Value) {
			return false
		}
	}
	return true
}

func attrValue(attrs []xml.Attr) Value {
	m := make(map[string]Value, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = String(a.Value)
	}
	return Map(m)
}
