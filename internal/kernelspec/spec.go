package kernelspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
)

const (
	keyArgv        = "argv"
	keyDisplayName = "display_name"
	keyEnv         = "env"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidName reports whether name is usable as a kernelspec name.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Spec is the content of a kernel.json file.
//
// The keys every tool touches are typed. Everything else is kept verbatim in
// Extra so that a read-modify-write cycle never drops fields this package
// does not know about.
type Spec struct {
	Argv        []string
	DisplayName string
	// Env is nil when kernel.json has no "env" key.
	Env   map[string]string
	Extra map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Spec) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Spec{}
	for key, value := range raw {
		switch key {
		case keyArgv:
			if err := json.Unmarshal(value, &s.Argv); err != nil {
				return fmt.Errorf("invalid %q: %w", key, err)
			}
		case keyDisplayName:
			if err := json.Unmarshal(value, &s.DisplayName); err != nil {
				return fmt.Errorf("invalid %q: %w", key, err)
			}
		case keyEnv:
			if err := json.Unmarshal(value, &s.Env); err != nil {
				return fmt.Errorf("invalid %q: %w", key, err)
			}
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[key] = slices.Clone(value)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Known keys come first, followed by
// the extra keys in sorted order.
func (s Spec) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value any) error {
		encoded, err := marshalNoEscape(value)
		if err != nil {
			return fmt.Errorf("encoding %q: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := marshalNoEscape(key)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(encoded)
		return nil
	}

	if s.Argv != nil {
		if err := field(keyArgv, s.Argv); err != nil {
			return nil, err
		}
	}
	if err := field(keyDisplayName, s.DisplayName); err != nil {
		return nil, err
	}
	if s.Env != nil {
		if err := field(keyEnv, s.Env); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := field(k, s.Extra[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Clone returns a deep copy of s.
func (s *Spec) Clone() *Spec {
	out := &Spec{
		Argv:        slices.Clone(s.Argv),
		DisplayName: s.DisplayName,
		Env:         maps.Clone(s.Env),
	}
	if s.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = slices.Clone(v)
		}
	}
	return out
}

// Equal reports whether s and other serialize to the same document.
func (s *Spec) Equal(other *Spec) bool {
	a, errA := json.Marshal(s)
	b, errB := json.Marshal(other)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Set assigns a top-level field. For display_name and extra keys value is
// taken as a plain string unless raw is set, in which case it must be JSON.
// argv and env always take JSON, since they are not strings.
func (s *Spec) Set(key, value string, raw bool) error {
	switch key {
	case "":
		return fmt.Errorf("key must not be empty")
	case keyDisplayName:
		if !raw {
			s.DisplayName = value
			return nil
		}
		var name string
		if err := json.Unmarshal([]byte(value), &name); err != nil {
			return fmt.Errorf("%s must be a JSON string: %w", key, err)
		}
		s.DisplayName = name
	case keyArgv:
		var argv []string
		if err := json.Unmarshal([]byte(value), &argv); err != nil {
			return fmt.Errorf("%s must be a JSON array of strings: %w", key, err)
		}
		s.Argv = argv
	case keyEnv:
		var env map[string]string
		if err := json.Unmarshal([]byte(value), &env); err != nil {
			return fmt.Errorf("%s must be a JSON object of strings: %w", key, err)
		}
		s.Env = env
	default:
		var encoded []byte
		if raw {
			if !json.Valid([]byte(value)) {
				return fmt.Errorf("value for %s is not valid JSON: %s", key, value)
			}
			var compacted bytes.Buffer
			if err := json.Compact(&compacted, []byte(value)); err != nil {
				return err
			}
			encoded = compacted.Bytes()
		} else {
			var err error
			if encoded, err = marshalNoEscape(value); err != nil {
				return err
			}
		}
		if s.Extra == nil {
			s.Extra = make(map[string]json.RawMessage)
		}
		s.Extra[key] = encoded
	}
	return nil
}

// Language returns the "language" field, if it is a string.
func (s *Spec) Language() string {
	var lang string
	if raw, ok := s.Extra["language"]; ok {
		_ = json.Unmarshal(raw, &lang)
	}
	return lang
}

// marshalNoEscape encodes v without HTML escaping, so argv entries such as
// "a&b" stay readable in kernel.json.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
