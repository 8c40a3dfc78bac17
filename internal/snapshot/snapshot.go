// Package snapshot reads and writes the portable export form of a focal
// document: a small envelope around the full State, validated against a CUE
// schema before any of it is applied. Validation rejects, normalization
// repairs; a document that passes both is safe to hand to the engine.
package snapshot

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/focal/internal/state"
)

// Format tags every export envelope. Imports carrying any other tag are
// rejected before the state inside is even looked at.
const Format = "focal-export"

//go:embed schema.cue
var schemaSource string

// Envelope is the export wire form: a format tag, the moment of export, and
// the complete document.
type Envelope struct {
	Format     string       `json:"format"`
	ExportedAt int64        `json:"exportedAt"`
	State      *state.State `json:"state"`
}

// Validation error codes. Stable: the CLI prints them and tests match on
// them, so a code is never reused for a different failure.
const (
	ErrMalformedPayload   = "E200" // input is not valid JSON
	ErrSchemaViolation    = "E201" // shape or type conflicts with the export schema
	ErrEmptyTitle         = "E202" // task title is empty once trimmed
	ErrUnsupportedVersion = "E203" // document schema version this build cannot read
)

// ValidationError is a rejected-import diagnostic: the field that failed,
// what is wrong with it, and a stable code callers can branch on.
type ValidationError struct {
	Field   string
	Message string
	Code    string
	Line    int
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] %s (line %d): %s", e.Code, e.Field, e.Line, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Export renders the document as canonical envelope bytes. Output is
// byte-stable: the same document always exports to the same bytes, so export
// files diff and digest cleanly.
func Export(s *state.State, exportedAt int64) ([]byte, error) {
	return state.CanonicalizeJSON(&Envelope{
		Format:     Format,
		ExportedAt: exportedAt,
		State:      s,
	})
}

// Import validates raw export bytes and returns the normalized document
// inside. The caller decides how to combine it with a live document; Import
// never touches anything outside its input.
func Import(raw []byte) (*state.State, error) {
	env, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	return Normalize(env.State), nil
}

// Validate checks raw export bytes against the envelope schema and the rules
// the schema cannot express. It fails with a single *ValidationError naming
// the offending field; nothing from a rejected document is ever applied.
func Validate(raw []byte) (*Envelope, error) {
	if !json.Valid(raw) {
		return nil, &ValidationError{
			Field:   "document",
			Message: "not valid JSON",
			Code:    ErrMalformedPayload,
		}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource).LookupPath(cue.ParsePath("#Export"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile export schema: %w", err)
	}

	// JSON is a subset of CUE, so the document compiles directly; unifying
	// it with the closed #Export definition rejects unknown fields, type
	// conflicts, and (via the concreteness check) missing required fields.
	doc := ctx.CompileBytes(raw, cue.Filename("export.json"))
	if err := doc.Err(); err != nil {
		return nil, schemaViolation(err)
	}
	if err := schema.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return nil, schemaViolation(err)
	}

	// The schema pass guarantees the decode succeeds shape-wise; anything
	// left (like an integer too large for int64) is still a schema problem.
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ValidationError{
			Field:   "document",
			Message: err.Error(),
			Code:    ErrSchemaViolation,
		}
	}

	if env.State.Version != state.SchemaVersion {
		return nil, &ValidationError{
			Field:   "state.version",
			Message: fmt.Sprintf("schema version %d, this build reads %d", env.State.Version, state.SchemaVersion),
			Code:    ErrUnsupportedVersion,
		}
	}

	for _, id := range slices.Sorted(maps.Keys(env.State.Tasks)) {
		if strings.TrimSpace(env.State.Tasks[id].Title) == "" {
			return nil, &ValidationError{
				Field:   "state.tasks." + id + ".title",
				Message: "task title is empty",
				Code:    ErrEmptyTitle,
			}
		}
	}

	return &env, nil
}

// schemaViolation turns a CUE unification failure into a ValidationError
// naming the first conflicting field.
func schemaViolation(err error) *ValidationError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Field: "document", Message: err.Error(), Code: ErrSchemaViolation}
	}

	first := errs[0]
	field := strings.Join(first.Path(), ".")
	if field == "" {
		field = "document"
	}
	format, args := first.Msg()

	ve := &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Code:    ErrSchemaViolation,
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ve.Line = positions[0].Line()
	}
	return ve
}
