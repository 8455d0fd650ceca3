package astroschema

import (
	"fmt"
	"sync"
)

// Kind selects one of the bundled record schemas.
type Kind int

const (
	KindSource Kind = iota
	KindQuantity
	KindPhotometry
	KindSpectrum
	KindEntry
)

var kindTitles = [...]string{
	KindSource:     "source",
	KindQuantity:   "quantity",
	KindPhotometry: "photometry",
	KindSpectrum:   "spectrum",
	KindEntry:      "entry",
}

// Kinds lists every kind.
func Kinds() []Kind {
	return []Kind{KindSource, KindQuantity, KindPhotometry, KindSpectrum, KindEntry}
}

// String is the schema title of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindTitles) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindTitles[k]
}

// ParseKind maps a schema title to its kind.
func ParseKind(title string) (Kind, bool) {
	for i, t := range kindTitles {
		if t == title {
			return Kind(i), true
		}
	}
	return 0, false
}

type kindType struct {
	once sync.Once
	typ  *StructType
	err  error
}

var kindTypes [len(kindTitles)]kindType

// StructType returns the kind's type, built once from the bundled registry.
func (k Kind) StructType() (*StructType, error) {
	if k < 0 || int(k) >= len(kindTitles) {
		return nil, NewSchemaNotFoundError(k.String())
	}
	kt := &kindTypes[k]
	kt.once.Do(func() {
		reg, err := BundledRegistry()
		if err != nil {
			kt.err = err
			return
		}
		kt.typ, kt.err = NewStructType(k.String(), WithSchemaRegistry(reg))
	})
	return kt.typ, kt.err
}

// New builds a record of kind k.
func (k Kind) New(fields any, opts ...StructOption) (*Struct, error) {
	t, err := k.StructType()
	if err != nil {
		return nil, err
	}
	return t.New(fields, opts...)
}

// NewSource builds a source record.
func NewSource(fields any, opts ...StructOption) (*Struct, error) {
	return KindSource.New(fields, opts...)
}

// NewQuantity builds a quantity record.
func NewQuantity(fields any, opts ...StructOption) (*Struct, error) {
	return KindQuantity.New(fields, opts...)
}

// NewPhotometry builds a photometry record.
func NewPhotometry(fields any, opts ...StructOption) (*Struct, error) {
	return KindPhotometry.New(fields, opts...)
}

// NewSpectrum builds a spectrum record.
func NewSpectrum(fields any, opts ...StructOption) (*Struct, error) {
	return KindSpectrum.New(fields, opts...)
}

// NewEntry builds an entry record.
func NewEntry(fields any, opts ...StructOption) (*Struct, error) {
	return KindEntry.New(fields, opts...)
}
