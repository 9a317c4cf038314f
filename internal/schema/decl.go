package schema

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dqb/internal/ir"
)

// Ptr returns a pointer to v. Declarations use pointers to tell "unset"
// apart from the zero value when partial declarations are merged.
func Ptr[T any](v T) *T {
	return &v
}

// JoinDecl declares how a physical secondary table joins its parent.
type JoinDecl struct {
	On   string `json:"on" yaml:"on"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Dependency lists the field keys correlating a table to its parent.
// The first entry drives join-chain walking; the full list is the
// composite correlation key for extra tables.
//
// Config files may give a single string instead of a list.
type Dependency []string

// UnmarshalJSON accepts either a string or a list of strings.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = Dependency{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("dependency must be a string or a list of strings")
	}
	*d = list
	return nil
}

// UnmarshalYAML accepts either a scalar or a sequence of scalars.
func (d *Dependency) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*d = Dependency{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return fmt.Errorf("dependency must be a string or a list of strings: %w", err)
		}
		*d = list
		return nil
	default:
		return fmt.Errorf("dependency must be a string or a list of strings")
	}
}

// TableDecl is a partial table declaration. Registering the same key twice
// merges the declarations; set fields of the later one win.
type TableDecl struct {
	Name           *string    `json:"name,omitempty" yaml:"name,omitempty"`
	IsExtra        *bool      `json:"is_extra,omitempty" yaml:"is_extra,omitempty"`
	Join           *JoinDecl  `json:"join,omitempty" yaml:"join,omitempty"`
	Dependency     Dependency `json:"dependency,omitempty" yaml:"dependency,omitempty"`
	AccessLevel    *int       `json:"access_level,omitempty" yaml:"access_level,omitempty"`
	ReadDisabled   *bool      `json:"read_disabled,omitempty" yaml:"read_disabled,omitempty"`
	FilterDisabled *bool      `json:"filter_disabled,omitempty" yaml:"filter_disabled,omitempty"`
	OrderDisabled  *bool      `json:"order_disabled,omitempty" yaml:"order_disabled,omitempty"`
}

func (d TableDecl) merge(o TableDecl) TableDecl {
	if o.Name != nil {
		d.Name = o.Name
	}
	if o.IsExtra != nil {
		d.IsExtra = o.IsExtra
	}
	if o.Join != nil {
		j := *o.Join
		d.Join = &j
	}
	if o.Dependency != nil {
		d.Dependency = append(Dependency(nil), o.Dependency...)
	}
	if o.AccessLevel != nil {
		d.AccessLevel = o.AccessLevel
	}
	if o.ReadDisabled != nil {
		d.ReadDisabled = o.ReadDisabled
	}
	if o.FilterDisabled != nil {
		d.FilterDisabled = o.FilterDisabled
	}
	if o.OrderDisabled != nil {
		d.OrderDisabled = o.OrderDisabled
	}
	return d
}

func (d TableDecl) canonical() ir.Object {
	obj := ir.Object{}
	if d.Name != nil {
		obj["name"] = ir.String(*d.Name)
	}
	if d.IsExtra != nil {
		obj["is_extra"] = ir.Bool(*d.IsExtra)
	}
	if d.Join != nil {
		obj["join"] = ir.Object{"on": ir.String(d.Join.On), "type": ir.String(d.Join.Type)}
	}
	if d.Dependency != nil {
		deps := make(ir.List, len(d.Dependency))
		for i, f := range d.Dependency {
			deps[i] = ir.String(f)
		}
		obj["dependency"] = deps
	}
	putFlags(obj, d.AccessLevel, d.ReadDisabled, d.FilterDisabled, d.OrderDisabled)
	return obj
}

// FieldDecl is a partial field declaration. Table defaults to the primary table.
type FieldDecl struct {
	Table          *string `json:"table,omitempty" yaml:"table,omitempty"`
	Name           *string `json:"name,omitempty" yaml:"name,omitempty"`
	AccessLevel    *int    `json:"access_level,omitempty" yaml:"access_level,omitempty"`
	ReadDisabled   *bool   `json:"read_disabled,omitempty" yaml:"read_disabled,omitempty"`
	FilterDisabled *bool   `json:"filter_disabled,omitempty" yaml:"filter_disabled,omitempty"`
	OrderDisabled  *bool   `json:"order_disabled,omitempty" yaml:"order_disabled,omitempty"`
}

func (d FieldDecl) merge(o FieldDecl) FieldDecl {
	if o.Table != nil {
		d.Table = o.Table
	}
	if o.Name != nil {
		d.Name = o.Name
	}
	if o.AccessLevel != nil {
		d.AccessLevel = o.AccessLevel
	}
	if o.ReadDisabled != nil {
		d.ReadDisabled = o.ReadDisabled
	}
	if o.FilterDisabled != nil {
		d.FilterDisabled = o.FilterDisabled
	}
	if o.OrderDisabled != nil {
		d.OrderDisabled = o.OrderDisabled
	}
	return d
}

func (d FieldDecl) canonical() ir.Object {
	obj := ir.Object{}
	if d.Table != nil {
		obj["table"] = ir.String(*d.Table)
	}
	if d.Name != nil {
		obj["name"] = ir.String(*d.Name)
	}
	putFlags(obj, d.AccessLevel, d.ReadDisabled, d.FilterDisabled, d.OrderDisabled)
	return obj
}

func putFlags(obj ir.Object, level *int, read, filter, order *bool) {
	if level != nil {
		obj["access_level"] = ir.Int(*level)
	}
	if read != nil {
		obj["read_disabled"] = ir.Bool(*read)
	}
	if filter != nil {
		obj["filter_disabled"] = ir.Bool(*filter)
	}
	if order != nil {
		obj["order_disabled"] = ir.Bool(*order)
	}
}
