package astroschema

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lychee-technology/astroschema/jsontree"
)

// DefaultDuplicateOutcome is what IsDuplicateOf answers, without hashing,
// when no unique or distinguishing field settles the question.
const DefaultDuplicateOutcome = true

// hashNamespace seeds the name-based UUIDs used as record hashes.
var hashNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/lychee-technology/astroschema/struct"))

// StructType binds a schema and its keychain. Records built from one type
// share both.
type StructType struct {
	schema            *SchemaDocument
	keychain          *Keychain
	extendable        bool
	duplicateUsesHash bool
}

type typeOptions struct {
	extensions        []any
	updates           []any
	extendable        bool
	checkConflict     bool
	finalize          func(*SchemaDocument) error
	registry          *Registry
	duplicateUsesHash bool
}

// TypeOption configures NewStructType.
type TypeOption func(*typeOptions)

// WithExtensions extends the schema with each source in turn.
func WithExtensions(sources ...any) TypeOption {
	return func(o *typeOptions) {
		o.extensions = append(o.extensions, sources...)
	}
}

// WithUpdates applies each source as a top-level overwrite, after the
// extensions.
func WithUpdates(sources ...any) TypeOption {
	return func(o *typeOptions) {
		o.updates = append(o.updates, sources...)
	}
}

// WithExtendable sets whether records accept fields the schema does not
// declare. Default true.
func WithExtendable(extendable bool) TypeOption {
	return func(o *typeOptions) {
		o.extendable = extendable
	}
}

// WithCheckConflict sets the conflict policy of the extensions. Default true.
func WithCheckConflict(check bool) TypeOption {
	return func(o *typeOptions) {
		o.checkConflict = check
	}
}

// WithFinalize runs fn on the merged schema before the keychain is built.
func WithFinalize(fn func(*SchemaDocument) error) TypeOption {
	return func(o *typeOptions) {
		o.finalize = fn
	}
}

// WithSchemaRegistry resolves schema titles against r.
func WithSchemaRegistry(r *Registry) TypeOption {
	return func(o *typeOptions) {
		o.registry = r
	}
}

// WithDuplicateUsesHash sets the comparison IsDuplicate uses. Default true.
func WithDuplicateUsesHash(useHash bool) TypeOption {
	return func(o *typeOptions) {
		o.duplicateUsesHash = useHash
	}
}

// NewStructType loads the schema from source, applies extensions, updates
// and the finalize hook, and derives a non-mutable keychain from the result.
func NewStructType(source any, opts ...TypeOption) (*StructType, error) {
	o := &typeOptions{
		extendable:        true,
		checkConflict:     true,
		duplicateUsesHash: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	doc, err := LoadSchema(source, WithRegistry(o.registry))
	if err != nil {
		return nil, err
	}
	for _, ext := range o.extensions {
		if err := doc.Extend(ext, o.checkConflict); err != nil {
			return nil, err
		}
	}
	for _, upd := range o.updates {
		if err := doc.Update(upd); err != nil {
			return nil, err
		}
	}
	if o.finalize != nil {
		if err := o.finalize(doc); err != nil {
			return nil, fmt.Errorf("failed to finalize schema %q: %w", doc.Title(), err)
		}
	}

	keychain, err := NewKeychain(doc, false, o.extendable)
	if err != nil {
		return nil, err
	}
	zap.S().Debugw("built struct type", "title", doc.Title(), "keys", keychain.Len(), "extendable", o.extendable)
	return &StructType{
		schema:            doc,
		keychain:          keychain,
		extendable:        o.extendable,
		duplicateUsesHash: o.duplicateUsesHash,
	}, nil
}

func (t *StructType) Schema() *SchemaDocument { return t.schema }
func (t *StructType) Keychain() *Keychain { return t.keychain }
func (t *StructType) Extendable() bool { return t.extendable }
func (t *StructType) DuplicateUsesHash() bool { return t.duplicateUsesHash }
func (t *StructType) Title() string { return t.schema.Title() }

type structOptions struct {
	validate   bool
	parent     *Struct
	extendable *bool
}

// StructOption configures StructType.New.
type StructOption func(*structOptions)

// NoValidate skips validation at construction.
func NoValidate() StructOption {
	return func(o *structOptions) {
		o.validate = false
	}
}

// WithParent records the struct this one belongs to.
func WithParent(parent *Struct) StructOption {
	return func(o *structOptions) {
		o.parent = parent
	}
}

// Extendable overrides the type's policy for one record.
func Extendable(extendable bool) StructOption {
	return func(o *structOptions) {
		o.extendable = &extendable
	}
}

// Struct is a record bound to a StructType. Fields keep insertion order.
type Struct struct {
	typ        *StructType
	fields     *jsontree.Object
	extendable bool
	parent     *Struct

	hash      string
	hashStale bool
}

// New builds a record from fields, which may be nil, a *jsontree.Object
// (order kept) or a map (keys sorted). It is validated unless NoValidate is
// given; on any failure no record is returned.
func (t *StructType) New(fields any, opts ...StructOption) (*Struct, error) {
	o := &structOptions{validate: true}
	for _, opt := range opts {
		opt(o)
	}

	s := &Struct{
		typ:        t,
		fields:     jsontree.NewObject(0),
		extendable: t.extendable,
		parent:     o.parent,
		hashStale:  true,
	}
	if o.extendable != nil {
		s.extendable = *o.extendable
	}

	switch f := fields.(type) {
	case nil:
	case map[string]any:
		names := make([]string, 0, len(f))
		for name := range f {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := s.Set(name, f[name]); err != nil {
				return nil, err
			}
		}
	default:
		obj, ok := toValue(fields).(*jsontree.Object)
		if !ok {
			return nil, NewValidationError("", fmt.Sprintf("record fields must be an object, got %T", fields), nil).
				WithSchema(t.Title())
		}
		var err error
		obj.Range(func(name string, value any) bool {
			err = s.Set(name, value)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}

	if o.validate {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// toValue normalizes a field value; nested records contribute their fields.
func toValue(v any) any {
	switch t := v.(type) {
	case *Struct:
		if t == nil {
			return nil
		}
		return t.fields
	case []*Struct:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = toValue(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toValue(item)
		}
		return out
	}
	return jsontree.FromValue(v)
}

// LoadStruct decodes a JSON object into a record of type t.
func LoadStruct(t *StructType, data []byte, opts ...StructOption) (*Struct, error) {
	obj, err := jsontree.DecodeObject(data)
	if err != nil {
		return nil, NewValidationError("", "record is not a JSON object", err).WithSchema(t.Title())
	}
	return t.New(obj, opts...)
}

func (s *Struct) Type() *StructType { return s.typ }
func (s *Struct) Schema() *SchemaDocument { return s.typ.schema }
func (s *Struct) Keychain() *Keychain { return s.typ.keychain }
func (s *Struct) Extendable() bool { return s.extendable }
func (s *Struct) Parent() *Struct { return s.parent }

// Set stores value under name. Names the keychain does not know are
// refused unless the record is extendable.
func (s *Struct) Set(name string, value any) error {
	if !s.extendable && !s.typ.keychain.Contains(name) {
		return NewUnknownFieldError(name).WithSchema(s.typ.Title())
	}
	s.fields.Set(name, toValue(value))
	s.hashStale = true
	return nil
}

func (s *Struct) Get(name string) (any, bool) {
	return s.fields.Get(name)
}

// GetKey reads the field of key.
func (s *Struct) GetKey(key *Key) (any, bool) {
	return s.fields.Get(key.Name())
}

func (s *Struct) Has(name string) bool {
	return s.fields.Has(name)
}

func (s *Struct) Delete(name string) {
	s.fields.Delete(name)
	s.hashStale = true
}

func (s *Struct) Keys() []string {
	return s.fields.Keys()
}

func (s *Struct) Len() int {
	return s.fields.Len()
}

// Fields returns a copy of the record's data.
func (s *Struct) Fields() *jsontree.Object {
	return jsontree.CloneObject(s.fields)
}

// Validate checks the record against its schema. Declared defaults for
// absent fields are stored into the record first.
func (s *Struct) Validate() error {
	s.hashStale = true
	return s.typ.schema.Validate(s.fields)
}

// Hash identifies the record by its unique and distinguishing fields only:
// a name-based UUID over their canonical JSON, in key name order.
func (s *Struct) Hash() (string, error) {
	if !s.hashStale && s.hash != "" {
		return s.hash, nil
	}
	names := s.typ.keychain.Names()
	sort.Strings(names)
	identity := jsontree.NewObject(len(names))
	for _, name := range names {
		key, _ := s.typ.keychain.Get(name)
		if !key.Relevant() {
			continue
		}
		if v, ok := s.fields.Get(name); ok {
			identity.Set(name, v)
		}
	}
	data, err := jsontree.MarshalCanonical(identity)
	if err != nil {
		return "", fmt.Errorf("failed to encode record identity: %w", err)
	}
	s.hash = uuid.NewSHA1(hashNamespace, data).String()
	s.hashStale = false
	return s.hash, nil
}

// IsDuplicate compares with the method configured on the record's type.
func (s *Struct) IsDuplicate(other *Struct) (bool, error) {
	return s.IsDuplicateOf(other, s.typ.duplicateUsesHash)
}

// IsDuplicateOf reports whether s and other describe the same entity.
//
// With useHash the hashes are compared. Otherwise records of different
// schemas are never duplicates, and each key known to either keychain is
// examined: keys that are neither unique nor distinguishing are skipped,
// a relevant field present on one side only or holding different values
// means not a duplicate, and an equal value under a unique key means a
// duplicate. If nothing decides, the answer is DefaultDuplicateOutcome.
func (s *Struct) IsDuplicateOf(other *Struct, useHash bool) (bool, error) {
	if other == nil {
		return false, nil
	}
	if useHash {
		h1, err := s.Hash()
		if err != nil {
			return false, err
		}
		h2, err := other.Hash()
		if err != nil {
			return false, err
		}
		return h1 == h2, nil
	}

	if s.typ.Title() != other.typ.Title() {
		return false, nil
	}

	names := s.typ.keychain.Names()
	for _, name := range other.typ.keychain.Names() {
		if !s.typ.keychain.Contains(name) {
			names = append(names, name)
		}
	}

	for _, name := range names {
		sKey, sOK := s.typ.keychain.Get(name)
		oKey, oOK := other.typ.keychain.Get(name)
		if !sOK || !oOK || !sKey.Identical(oKey) {
			return false, NewKeychainMutationError(ErrCodeKeyMismatch, name,
				"keychains disagree on this key").WithSchema(s.typ.Title())
		}
		if !sKey.Relevant() {
			continue
		}

		sVal, inS := s.fields.Get(name)
		oVal, inO := other.fields.Get(name)
		if inS != inO {
			return false, nil
		}
		if !inS {
			continue
		}
		if !jsontree.Equal(sVal, oVal) {
			return false, nil
		}
		if sKey.Unique() {
			return true, nil
		}
	}
	return DefaultDuplicateOutcome, nil
}

// Copy returns a record with its own top-level fields; nested values are
// shared with s.
func (s *Struct) Copy() *Struct {
	c := *s
	c.fields = s.fields.ShallowCopy()
	return &c
}

// DeepCopy returns a record sharing nothing but type and parent with s.
func (s *Struct) DeepCopy() *Struct {
	c := *s
	c.fields = jsontree.CloneObject(s.fields)
	return &c
}

func (s *Struct) MarshalJSON() ([]byte, error) {
	return jsontree.Marshal(s.fields)
}

// ToJSON renders the record as 2-space indented JSON in field order.
func (s *Struct) ToJSON() (string, error) {
	data, err := jsontree.MarshalIndent(s.fields, "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Struct) String() string {
	out, err := s.ToJSON()
	if err != nil {
		return fmt.Sprintf("<%s: %v>", s.typ.Title(), err)
	}
	return out
}
