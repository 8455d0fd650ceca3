package validator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lychee-technology/astroschema/jsontree"
)

// RefError reports a $ref that could not be inlined.
type RefError struct {
	Ref  string
	File string
	Err  error
}

func (e *RefError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("cannot resolve $ref %q in %s: %v", e.Ref, e.File, e.Err)
	}
	return fmt.Sprintf("cannot resolve $ref %q: %v", e.Ref, e.Err)
}

func (e *RefError) Unwrap() error {
	return e.Err
}

// ErrCircularRef marks a $ref chain that leads back to itself.
var ErrCircularRef = errors.New("circular reference")

// ReadFileFunc reads a referenced schema file.
type ReadFileFunc func(path string) ([]byte, error)

// inliner replaces every $ref in a schema tree with a copy of its target.
// Local pointers resolve against the document they appear in, file
// references against the directory of that document.
type inliner struct {
	baseDir   string
	readFile  ReadFileFunc
	cache     map[string]*jsontree.Object
	resolving map[string]bool
}

func newInliner(baseDir string, readFile ReadFileFunc) *inliner {
	if readFile == nil {
		readFile = os.ReadFile
	}
	return &inliner{
		baseDir:   baseDir,
		readFile:  readFile,
		cache:     make(map[string]*jsontree.Object),
		resolving: make(map[string]bool),
	}
}

// rootFile is the cache key of the in-memory document being compiled.
const rootFile = ""

// Inline returns a copy of root with all references expanded and
// definitions dropped.
func (s *inliner) Inline(root *jsontree.Object) (*jsontree.Object, error) {
	s.cache[rootFile] = root
	out, err := s.inlineObject(root, rootFile)
	if err != nil {
		return nil, err
	}
	out.Delete("definitions")
	out.Delete("$defs")
	return out, nil
}

func (s *inliner) loadFile(path string) (*jsontree.Object, error) {
	if cached, ok := s.cache[path]; ok {
		return cached, nil
	}
	data, err := s.readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	var doc *jsontree.Object
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		doc, err = jsontree.DecodeYAML(data)
	default:
		doc, err = jsontree.DecodeObject(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.cache[path] = doc
	return doc, nil
}

func (s *inliner) inlineNode(node any, currentFile string) (any, error) {
	switch v := node.(type) {
	case *jsontree.Object:
		return s.inlineObject(v, currentFile)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			inlined, err := s.inlineNode(item, currentFile)
			if err != nil {
				return nil, err
			}
			out[i] = inlined
		}
		return out, nil
	default:
		return node, nil
	}
}

func (s *inliner) inlineObject(obj *jsontree.Object, currentFile string) (*jsontree.Object, error) {
	ref, ok := obj.Get("$ref")
	if !ok {
		return s.inlineMembers(obj, currentFile)
	}
	refStr, ok := ref.(string)
	if !ok {
		return nil, &RefError{Ref: fmt.Sprint(ref), File: currentFile, Err: errors.New("$ref must be a string")}
	}

	resolved, err := s.resolveRef(refStr, currentFile)
	if err != nil {
		return nil, err
	}

	// Sibling keywords of $ref override the target's.
	merged := resolved.ShallowCopy()
	obj.Range(func(k string, v any) bool {
		if k != "$ref" {
			merged.Set(k, v)
		}
		return true
	})
	merged.Delete("$id")
	merged.Delete("$schema")
	return s.inlineMembers(merged, currentFile)
}

func (s *inliner) inlineMembers(obj *jsontree.Object, currentFile string) (*jsontree.Object, error) {
	out := jsontree.NewObject(obj.Len())
	var firstErr error
	obj.Range(func(key string, value any) bool {
		if key == "definitions" || key == "$defs" {
			return true
		}
		if key == "properties" || key == "patternProperties" || key == "dependencies" {
			// Member names here are property names, not keywords.
			if members, ok := value.(*jsontree.Object); ok {
				inlined := jsontree.NewObject(members.Len())
				members.Range(func(name string, sub any) bool {
					v, err := s.inlineNode(sub, currentFile)
					if err != nil {
						firstErr = err
						return false
					}
					inlined.Set(name, v)
					return true
				})
				if firstErr != nil {
					return false
				}
				out.Set(key, inlined)
				return true
			}
		}
		if key == "enum" || key == "const" || key == "default" || key == "examples" {
			out.Set(key, jsontree.Clone(value))
			return true
		}
		inlined, err := s.inlineNode(value, currentFile)
		if err != nil {
			firstErr = err
			return false
		}
		out.Set(key, inlined)
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (s *inliner) resolveRef(ref, currentFile string) (*jsontree.Object, error) {
	cycleKey := currentFile + "|" + ref
	if s.resolving[cycleKey] {
		return nil, &RefError{Ref: ref, File: currentFile, Err: ErrCircularRef}
	}
	s.resolving[cycleKey] = true
	defer delete(s.resolving, cycleKey)

	filePath, pointer := parseRef(ref)
	if strings.Contains(filePath, "://") {
		return nil, &RefError{Ref: ref, File: currentFile, Err: errors.New("remote references are not supported")}
	}

	targetFile := currentFile
	if filePath != "" {
		dir := s.baseDir
		if currentFile != rootFile {
			dir = filepath.Dir(currentFile)
		}
		if filepath.IsAbs(filePath) {
			targetFile = filepath.Clean(filePath)
		} else {
			targetFile = filepath.Join(dir, filePath)
		}
	}

	doc, err := s.loadFile(targetFile)
	if err != nil {
		return nil, &RefError{Ref: ref, File: currentFile, Err: err}
	}

	target, err := resolveJSONPointer(doc, pointer)
	if err != nil {
		return nil, &RefError{Ref: ref, File: currentFile, Err: err}
	}
	targetObj, ok := target.(*jsontree.Object)
	if !ok {
		return nil, &RefError{Ref: ref, File: currentFile, Err: errors.New("target is not an object")}
	}

	return s.inlineObject(targetObj, targetFile)
}

// parseRef splits "file.json#/pointer" into its parts.
func parseRef(ref string) (filePath string, pointer string) {
	if idx := strings.Index(ref, "#"); idx != -1 {
		return ref[:idx], ref[idx+1:]
	}
	return ref, ""
}

// resolveJSONPointer follows an RFC 6901 pointer.
func resolveJSONPointer(doc any, pointer string) (any, error) {
	if pointer == "" || pointer == "/" {
		return doc, nil
	}
	parts := strings.Split(strings.TrimPrefix(pointer, "/"), "/")
	current := doc
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")

		switch v := current.(type) {
		case *jsontree.Object:
			next, ok := v.Get(part)
			if !ok {
				return nil, fmt.Errorf("key not found: %s", part)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid array index: %s", part)
			}
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("array index out of bounds: %d", idx)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot traverse into %T", current)
		}
	}
	return current, nil
}
