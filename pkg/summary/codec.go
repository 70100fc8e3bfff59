package summary

import (
	"encoding/json"
	"fmt"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vardata"
)

type linkDoc struct {
	From model.VariableDoc `json:"from"`
	To   model.VariableDoc `json:"to"`
	LV   link.LV           `json:"lv"`
}

type linksDoc struct {
	Primary model.VariableDoc `json:"primary"`
	Links   []linkDoc         `json:"links,omitempty"`
}

type document struct {
	Method     string              `json:"method"`
	Params     []linksDoc          `json:"params,omitempty"`
	Return     *linksDoc           `json:"return,omitempty"`
	Modified   []model.VariableDoc `json:"modified,omitempty"`
	Unresolved bool                `json:"unresolved,omitempty"`
}

func describeLinks(l vardata.Links) *linksDoc {
	if l.Primary() == nil {
		return nil
	}
	d := &linksDoc{Primary: model.Describe(l.Primary())}
	for _, x := range l.Slice() {
		d.Links = append(d.Links, linkDoc{From: model.Describe(x.From), To: model.Describe(x.To), LV: x.LV})
	}
	return d
}

func (d *linksDoc) links() (vardata.Links, error) {
	if d == nil {
		return vardata.Links{}, nil
	}
	primary, err := d.Primary.Variable()
	if err != nil {
		return vardata.Links{}, err
	}
	b := vardata.NewBuilder(primary)
	for _, x := range d.Links {
		from, err := x.From.Variable()
		if err != nil {
			return vardata.Links{}, err
		}
		to, err := x.To.Variable()
		if err != nil {
			return vardata.Links{}, err
		}
		b.Add(from, to, x.LV)
	}
	return b.Build(), nil
}

// MarshalJSON encodes the summary with self-contained variable
// descriptions, so it can be cached across runs.
func (s *MethodLinkedVariables) MarshalJSON() ([]byte, error) {
	d := document{Method: s.Method, Return: describeLinks(s.Return), Unresolved: s.Unresolved}
	for _, p := range s.Params {
		pd := describeLinks(p)
		if pd == nil {
			return nil, fmt.Errorf("summary %s: parameter links without primary", s.Method)
		}
		d.Params = append(d.Params, *pd)
	}
	for _, v := range s.Modified {
		d.Modified = append(d.Modified, model.Describe(v))
	}
	return json.Marshal(d)
}

func (s *MethodLinkedVariables) UnmarshalJSON(b []byte) error {
	var d document
	if err := json.Unmarshal(b, &d); err != nil {
		return err
	}
	params := make([]vardata.Links, len(d.Params))
	for i := range d.Params {
		l, err := d.Params[i].links()
		if err != nil {
			return fmt.Errorf("summary %s: param %d: %w", d.Method, i, err)
		}
		params[i] = l
	}
	ret, err := d.Return.links()
	if err != nil {
		return fmt.Errorf("summary %s: return: %w", d.Method, err)
	}
	modified := make([]model.Variable, 0, len(d.Modified))
	for _, md := range d.Modified {
		v, err := md.Variable()
		if err != nil {
			return fmt.Errorf("summary %s: modified: %w", d.Method, err)
		}
		modified = append(modified, v)
	}
	*s = *New(d.Method, params, ret, modified)
	s.Unresolved = d.Unresolved
	return nil
}
