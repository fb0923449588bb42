package assistant

import (
	"encoding/json"
	"strings"
)

// Assembler incrementally reconstructs the JSON document emitted by the
// add-preview stream. The backend sends a single object whose narration
// is nested as a "content" string field while item data streams in
// around it; the assembler extracts the content value as soon as it has
// started, long before the surrounding document is well formed, so the
// UI can show prose while the rest is still arriving.
type Assembler struct {
	buf         strings.Builder
	lastContent string
}

// NewAssembler returns an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// AppendChunk appends a streamed text delta to the raw buffer.
func (a *Assembler) AppendChunk(delta string) {
	a.buf.WriteString(delta)
}

// ReplaceFull replaces the buffer with the serialized form of a full
// replacement object.
func (a *Assembler) ReplaceFull(data json.RawMessage) {
	a.buf.Reset()
	a.buf.Write(data)
}

// Reset clears the accumulated buffer. Used when the backend restarts
// generation, e.g. after a permission confirmation.
func (a *Assembler) Reset() {
	a.buf.Reset()
	a.lastContent = ""
}

// Content extracts the current value of the top-level "content" field.
// changed is true when the value is non-empty and differs from the last
// value this method returned with changed=true; callers use it to
// decide whether to surface an incremental update.
func (a *Assembler) Content() (content string, changed bool) {
	content, ok := extractContentField(a.buf.String())
	if !ok || content == "" || content == a.lastContent {
		return content, false
	}
	a.lastContent = content
	return content, true
}

// Final strictly parses the full buffer into the structured response.
// A parse failure degrades to an empty preview rather than an error:
// partial content has already been shown, and there is nothing useful
// to do with a malformed tail.
func (a *Assembler) Final() *AddPreview {
	var preview AddPreview
	if err := json.Unmarshal([]byte(a.buf.String()), &preview); err != nil {
		return &AddPreview{}
	}
	return &preview
}

// Raw returns the accumulated raw buffer.
func (a *Assembler) Raw() string {
	return a.buf.String()
}

// extractContentField scans raw for a "content" key and returns its
// string value decoded so far. It does not require the surrounding JSON
// to be complete: an unterminated value yields everything up to the end
// of the buffer. ok is false until the opening quote of the value has
// been seen.
func extractContentField(raw string) (value string, ok bool) {
	idx := strings.Index(raw, `"content"`)
	if idx < 0 {
		return "", false
	}
	rest := raw[idx+len(`"content"`):]

	// Skip whitespace, the colon, more whitespace, then require the
	// opening quote of the value.
	i := 0
	for i < len(rest) && isJSONSpace(rest[i]) {
		i++
	}
	if i >= len(rest) || rest[i] != ':' {
		return "", false
	}
	i++
	for i < len(rest) && isJSONSpace(rest[i]) {
		i++
	}
	if i >= len(rest) || rest[i] != '"' {
		return "", false
	}
	i++

	var sb strings.Builder
	for i < len(rest) {
		c := rest[i]
		if c == '\\' {
			if i+1 >= len(rest) {
				// Dangling escape at the end of the buffer; the
				// escaped character has not arrived yet.
				break
			}
			switch rest[i+1] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				// Unknown escape: keep the character as-is.
				sb.WriteByte(rest[i+1])
			}
			i += 2
			continue
		}
		if c == '"' {
			// Unescaped quote terminates the value.
			return sb.String(), true
		}
		sb.WriteByte(c)
		i++
	}
	return sb.String(), true
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
