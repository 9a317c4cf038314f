package schemaload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/dqb/internal/schema"
)

// Format is a configuration file syntax.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// Table is one table declaration in file order.
type Table struct {
	Key  string
	Decl schema.TableDecl
}

// Field is one field declaration in file order.
type Field struct {
	Key  string
	Decl schema.FieldDecl
}

// Config is a loaded configuration file.
type Config struct {
	Tables []Table
	Fields []Field
}

// Apply registers every declaration on s in file order.
func (c *Config) Apply(s *schema.Schema) {
	for _, t := range c.Tables {
		s.RegisterTable(t.Key, t.Decl)
	}
	for _, f := range c.Fields {
		s.RegisterField(f.Key, f.Decl)
	}
}

// Schema returns a new schema holding the configuration.
func (c *Config) Schema(opts ...schema.Option) *schema.Schema {
	s := schema.New(opts...)
	c.Apply(s)
	return s
}

// FormatOf maps a file extension to its format.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{Code: ErrCodeUnsupportedFormat,
			Message: fmt.Sprintf("unsupported config file %q (valid: .json, .yaml, .yml, .cue)", path)}
	}
}

// LoadFile reads a configuration file, choosing the format by extension.
func LoadFile(path string) (*Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: err.Error()}
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. filename is used in CUE
// positions only.
func Parse(data []byte, format Format, filename string) (*Config, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(data)
	case FormatYAML:
		return ParseYAML(data)
	case FormatCUE:
		return ParseCUE(data, filename)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupportedFormat, Message: fmt.Sprintf("unsupported format %q", format)}
	}
}

// ParseJSON decodes a JSON configuration.
func ParseJSON(data []byte) (*Config, error) {
	var doc struct {
		Tables json.RawMessage `json:"tables"`
		Fields json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error()}
	}

	cfg := &Config{}
	err := eachJSONEntry(doc.Tables, "tables", func(key string, dec *json.Decoder) error {
		var decl schema.TableDecl
		if err := dec.Decode(&decl); err != nil {
			return err
		}
		cfg.Tables = append(cfg.Tables, Table{Key: key, Decl: decl})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachJSONEntry(doc.Fields, "fields", func(key string, dec *json.Decoder) error {
		var decl schema.FieldDecl
		if err := dec.Decode(&decl); err != nil {
			return err
		}
		cfg.Fields = append(cfg.Fields, Field{Key: key, Decl: decl})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// eachJSONEntry walks the members of a JSON object in document order,
// handing fn a decoder positioned at each value.
func eachJSONEntry(raw json.RawMessage, section string, fn func(key string, dec *json.Decoder) error) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return &LoadError{Code: ErrCodeInvalidConfig, Path: section, Message: "must be an object"}
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return &LoadError{Code: ErrCodeParseFailed, Path: section, Message: err.Error()}
		}
		key := tok.(string)
		if err := fn(key, dec); err != nil {
			return &LoadError{Code: ErrCodeInvalidConfig, Path: section + "." + key, Message: err.Error()}
		}
	}
	return nil
}

// ParseYAML decodes a YAML configuration.
func ParseYAML(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: err.Error()}
	}

	cfg := &Config{}
	if len(doc.Content) == 0 {
		return cfg, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, &LoadError{Code: ErrCodeInvalidConfig, Message: "document must be a mapping"}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		section, body := root.Content[i].Value, root.Content[i+1]
		switch section {
		case "tables":
			err := eachYAMLEntry(body, section, func(key string, node *yaml.Node) error {
				var decl schema.TableDecl
				if err := node.Decode(&decl); err != nil {
					return err
				}
				cfg.Tables = append(cfg.Tables, Table{Key: key, Decl: decl})
				return nil
			})
			if err != nil {
				return nil, err
			}
		case "fields":
			err := eachYAMLEntry(body, section, func(key string, node *yaml.Node) error {
				var decl schema.FieldDecl
				if err := node.Decode(&decl); err != nil {
					return err
				}
				cfg.Fields = append(cfg.Fields, Field{Key: key, Decl: decl})
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

func eachYAMLEntry(node *yaml.Node, section string, fn func(key string, node *yaml.Node) error) error {
	if node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return &LoadError{Code: ErrCodeInvalidConfig, Path: section, Message: fmt.Sprintf("line %d: must be a mapping", node.Line)}
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		// An empty declaration ("users:") decodes as null.
		if value.Tag == "!!null" {
			value = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		if err := fn(key, value); err != nil {
			return &LoadError{Code: ErrCodeInvalidConfig, Path: section + "." + key, Message: err.Error()}
		}
	}
	return nil
}

// ParseCUE evaluates a CUE configuration. The result must be concrete.
func ParseCUE(data []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueError(ErrCodeParseFailed, "", err)
	}
	// Conflicts below the root only surface on validation.
	if err := v.Validate(); err != nil {
		return nil, cueError(ErrCodeParseFailed, "", err)
	}

	cfg := &Config{}
	err := eachCUEEntry(v, "tables", func(key string, raw []byte) error {
		var decl schema.TableDecl
		if err := json.Unmarshal(raw, &decl); err != nil {
			return err
		}
		cfg.Tables = append(cfg.Tables, Table{Key: key, Decl: decl})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachCUEEntry(v, "fields", func(key string, raw []byte) error {
		var decl schema.FieldDecl
		if err := json.Unmarshal(raw, &decl); err != nil {
			return err
		}
		cfg.Fields = append(cfg.Fields, Field{Key: key, Decl: decl})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// eachCUEEntry walks the regular fields of v.section in declaration order,
// handing fn each value exported as JSON.
func eachCUEEntry(v cue.Value, section string, fn func(key string, raw []byte) error) error {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil
	}
	if sv.Kind() != cue.StructKind {
		return &LoadError{Code: ErrCodeInvalidConfig, Path: section, Message: "must be a struct", Pos: sv.Pos()}
	}

	iter, err := sv.Fields()
	if err != nil {
		return cueError(ErrCodeInvalidConfig, section, err)
	}
	for iter.Next() {
		key := iter.Label()
		raw, err := iter.Value().MarshalJSON()
		if err != nil {
			return cueError(ErrCodeInvalidConfig, section+"."+key, err)
		}
		if err := fn(key, raw); err != nil {
			return &LoadError{Code: ErrCodeInvalidConfig, Path: section + "." + key, Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return nil
}

// cueError converts a CUE error to a LoadError carrying the first error's
// position.
func cueError(code, path string, err error) *LoadError {
	le := &LoadError{Code: code, Path: path, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		le.Message = errs[0].Error()
		if positions := cueerrors.Positions(errs[0]); len(positions) > 0 {
			le.Pos = positions[0]
		}
	}
	return le
}
