package driver

import (
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/zeebo/blake3"

	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
)

// Memo persists summaries across runs. A summary is reused only when the
// fingerprint it was stored under still matches.
type Memo interface {
	Load(method, fingerprint string) (*summary.MethodLinkedVariables, bool)
	Save(method, fingerprint string, s *summary.MethodLinkedVariables) error
}

// fingerprint hashes everything the summary of m depends on: its
// declaration and body, the declarations of every type it refers to, and the
// summaries of its callees as known when m is analyzed.
func fingerprint(p *model.Program, m *model.Method, callees []string, lookup summary.Lookup) (string, error) {
	h := blake3.New()
	enc := json.NewEncoder(h)
	if err := enc.Encode(m); err != nil {
		return "", err
	}
	for _, name := range p.ReferencedTypes(m) {
		io.WriteString(h, name+"\x00")
		if ti, ok := p.TypeInfo(name); ok {
			if err := enc.Encode(ti); err != nil {
				return "", err
			}
		}
	}
	for _, callee := range callees {
		s, status := lookup.Summary(callee)
		io.WriteString(h, callee+"\x00"+status.String()+"\x00")
		if s != nil {
			io.WriteString(h, s.String())
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
