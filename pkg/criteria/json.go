package criteria

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// MaxDepth bounds the nesting accepted by Decode.
const MaxDepth = 64

// ErrInvalidCriteria is returned by Decode for malformed documents.
var ErrInvalidCriteria = errors.New("invalid criteria document")

// envelope is the wire shape shared by every node: a kind discriminator plus
// either leaf fields or children.
type envelope struct {
	Kind     string            `json:"kind"`
	Children []json.RawMessage `json:"children,omitempty"`
	Child    json.RawMessage   `json:"child,omitempty"`
}

// Marshal encodes an expression tree as JSON with "kind" discriminators.
func Marshal(expr Expression) ([]byte, error) {
	switch e := expr.(type) {
	case *VaultCriteria:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*VaultCriteria
		}{KindVault, e})
	case *RefCriteria:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*RefCriteria
		}{KindRef, e})
	case *TimeCriteria:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*TimeCriteria
		}{KindTime, e})
	case *LockCriteria:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*LockCriteria
		}{KindLock, e})
	case *CustomCriteria:
		return json.Marshal(struct {
			Kind string `json:"kind"`
			*CustomCriteria
		}{KindCustom, e})
	case *AndCriteria:
		return marshalChildren(KindAnd, e.Children)
	case *OrCriteria:
		return marshalChildren(KindOr, e.Children)
	case *NotCriteria:
		child, err := Marshal(e.Child)
		if err != nil {
			return nil, err
		}
		return json.Marshal(envelope{Kind: KindNot, Child: child})
	case nil:
		return nil, fmt.Errorf("%w: nil expression", ErrInvalidCriteria)
	default:
		return nil, fmt.Errorf("%w: cannot encode kind %q", ErrInvalidCriteria, expr.Kind())
	}
}

// Decode parses a JSON criteria document produced by Marshal.
func Decode(data []byte) (Expression, error) {
	return decode(data, 0)
}

func decode(data []byte, depth int) (Expression, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrInvalidCriteria, MaxDepth)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}

	switch env.Kind {
	case KindVault:
		c := &VaultCriteria{}
		return c, unmarshalLeaf(data, c)
	case KindRef:
		c := &RefCriteria{}
		return c, unmarshalLeaf(data, c)
	case KindTime:
		c := &TimeCriteria{}
		return c, unmarshalLeaf(data, c)
	case KindLock:
		c := &LockCriteria{}
		return c, unmarshalLeaf(data, c)
	case KindCustom:
		c := &CustomCriteria{}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
		}
		for i, v := range c.Values {
			n, err := normalizeNumber(v)
			if err != nil {
				return nil, err
			}
			c.Values[i] = n
		}
		return c, nil
	case KindAnd, KindOr:
		children := make([]Expression, 0, len(env.Children))
		for _, raw := range env.Children {
			child, err := decode(raw, depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if env.Kind == KindAnd {
			return &AndCriteria{Children: children}, nil
		}
		return &OrCriteria{Children: children}, nil
	case KindNot:
		if len(env.Child) == 0 {
			return nil, fmt.Errorf("%w: not without child", ErrInvalidCriteria)
		}
		child, err := decode(env.Child, depth+1)
		if err != nil {
			return nil, err
		}
		return &NotCriteria{Child: child}, nil
	case "":
		return nil, fmt.Errorf("%w: missing kind", ErrInvalidCriteria)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidCriteria, env.Kind)
	}
}

func marshalChildren(kind string, children []Expression) ([]byte, error) {
	env := envelope{Kind: kind, Children: make([]json.RawMessage, 0, len(children))}
	for _, c := range children {
		raw, err := Marshal(c)
		if err != nil {
			return nil, err
		}
		env.Children = append(env.Children, raw)
	}
	return json.Marshal(env)
}

func unmarshalLeaf(data []byte, into interface{}) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	return nil
}

// normalizeNumber turns integral JSON numbers back into int64 so they bind
// as INTEGER parameters. Other numbers become float64.
func normalizeNumber(v interface{}) (interface{}, error) {
	n, ok := v.(json.Number)
	if !ok {
		return v, nil
	}
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: number %s: %v", ErrInvalidCriteria, n, err)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f), nil
	}
	return f, nil
}
