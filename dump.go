package hived

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/dkvlabs/hived/internal/offset"
)

// dumpNode is the YAML shape one tree node is rendered into. It is the
// structured equivalent of one line of original_source's
// traverse_and_print, which writes "name=value\n" or "name:\n" followed
// by an indented subtree to stderr.
type dumpNode struct {
	Name     string      `yaml:"name"`
	Type     string      `yaml:"type"`
	Value    any         `yaml:"value,omitempty"`
	Children []*dumpNode `yaml:"children,omitempty"`
}

// Dump writes a depth-first YAML rendering of the database's tree to w,
// rooted at the database's root directory, grounded directly on
// database_traverse_and_print_database / traverse_and_print.
func (db *Database) Dump(w io.Writer) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	root := db.buildDump(db.root, "")
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(root.Children)
}

func (db *Database) buildDump(off offset.Offset, name string) *dumpNode {
	n := node{db: db, off: off}
	dn := &dumpNode{Name: name, Type: n.nodeType().String()}

	if n.nodeType() == TypeDirectory {
		for c := n.childOffset(); c != offset.Null; {
			child := node{db: db, off: c}
			dn.Children = append(dn.Children, db.buildDump(c, child.name()))
			c = child.next()
		}
		return dn
	}

	v, err := n.decodeValue()
	if err != nil {
		return dn
	}
	switch v.Type {
	case TypeInt:
		dn.Value = v.Int
	case TypeString:
		dn.Value = v.Str
	case TypeFloat:
		dn.Value = v.Float
	case TypeBool:
		dn.Value = v.Bool
	}
	return dn
}
